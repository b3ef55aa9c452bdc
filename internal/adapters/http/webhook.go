package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"sync"
	"time"

	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

const webhookQueueSize = 64

// Notification is the JSON body posted to the webhook.
type Notification struct {
	Op      string                  `json:"op"`
	Kind    domain.NotificationKind `json:"kind"`
	Message string                  `json:"message,omitempty"`
	Token   string                  `json:"resolution_token,omitempty"`
	At      time.Time               `json:"at"`
}

// WebhookConfig configures the webhook notifier.
type WebhookConfig struct {
	URL      string
	AuthKey  string
	Timeout  time.Duration
	Hostname string
}

// WebhookNotifier implements ports.Notifier by posting every notification to
// an HTTP endpoint. Deliveries run on a single worker in posting order; when
// the queue is full the notification is dropped.
type WebhookNotifier struct {
	cfg    WebhookConfig
	client ports.HTTPClient
	logger ports.Logger

	queue chan Notification
	done  chan struct{}
	once  sync.Once
	wg    sync.WaitGroup
}

// NewWebhookNotifier creates a webhook notifier and starts its worker.
// Call Close to drain the queue and stop the worker.
func NewWebhookNotifier(cfg WebhookConfig, client ports.HTTPClient, logger ports.Logger) *WebhookNotifier {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	n := &WebhookNotifier{
		cfg:    cfg,
		client: client,
		logger: logger,
		queue:  make(chan Notification, webhookQueueSize),
		done:   make(chan struct{}),
	}
	n.wg.Add(1)
	go n.run()
	return n
}

// Notify posts an informational or error notification.
func (n *WebhookNotifier) Notify(kind domain.NotificationKind, message string) {
	n.enqueue(Notification{Op: "notify", Kind: kind, Message: message})
}

// NotifyResolution posts a notification the user can act on.
func (n *WebhookNotifier) NotifyResolution(kind domain.NotificationKind, message, token string) {
	n.enqueue(Notification{Op: "resolve", Kind: kind, Message: message, Token: token})
}

// Cancel posts a cancellation for the notification kind.
func (n *WebhookNotifier) Cancel(kind domain.NotificationKind) {
	n.enqueue(Notification{Op: "cancel", Kind: kind})
}

// Close delivers the queued notifications and stops the worker.
func (n *WebhookNotifier) Close() {
	n.once.Do(func() { close(n.done) })
	n.wg.Wait()
}

func (n *WebhookNotifier) enqueue(msg Notification) {
	msg.At = time.Now().UTC()
	select {
	case <-n.done:
		return
	default:
	}
	select {
	case n.queue <- msg:
	default:
		n.logger.Warn("webhook queue full, dropping notification",
			ports.String("kind", msg.Kind.String()),
			ports.String("op", msg.Op))
	}
}

func (n *WebhookNotifier) run() {
	defer n.wg.Done()
	for {
		select {
		case msg := <-n.queue:
			n.deliver(msg)
		case <-n.done:
			for {
				select {
				case msg := <-n.queue:
					n.deliver(msg)
				default:
					return
				}
			}
		}
	}
}

func (n *WebhookNotifier) deliver(msg Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.Timeout)
	defer cancel()

	if err := n.post(ctx, msg); err != nil {
		n.logger.Warn("webhook delivery failed",
			ports.String("kind", msg.Kind.String()),
			ports.String("op", msg.Op),
			ports.Err(err))
	}
}

func (n *WebhookNotifier) post(ctx context.Context, msg Notification) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if n.cfg.AuthKey != "" {
		req.Header.Set("Authorization", "Bearer "+n.cfg.AuthKey)
	}
	req.Header.Set("X-Tripdiary-Hostname", n.cfg.Hostname)
	req.Header.Set("X-Tripdiary-OSArch", runtime.GOOS+"/"+runtime.GOARCH)

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

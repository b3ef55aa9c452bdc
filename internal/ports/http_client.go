package ports

import "net/http"

// HTTPClient abstracts HTTP operations so the webhook notifier and the
// control API client can be tested without a network.
// The standard *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

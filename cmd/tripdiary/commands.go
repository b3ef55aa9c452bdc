package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bft-labs/tripdiary/internal/adapters/fs"
	httpAdapter "github.com/bft-labs/tripdiary/internal/adapters/http"
	logAdapter "github.com/bft-labs/tripdiary/internal/adapters/log"
	redisAdapter "github.com/bft-labs/tripdiary/internal/adapters/redis"
	"github.com/bft-labs/tripdiary/internal/cliconfig"
	"github.com/bft-labs/tripdiary/internal/domain"
	"github.com/bft-labs/tripdiary/internal/ports"
)

const clientTimeout = 10 * time.Second

type configLoader func(cmd *cobra.Command) (string, error)

func newStateCommand(cfg *cliconfig.Config, load configLoader) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "state",
		Short: "Print the persisted tracking state",
		Long: "Print the persisted tracking state. By default the configured store is read directly;\n" +
			"with --remote the running tracker is asked through its control API.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(cmd); err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
			defer cancel()

			var (
				state domain.State
				err   error
			)
			if remote {
				state, err = newClient(*cfg).State(ctx)
			} else {
				state, err = loadStoredState(ctx, *cfg)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), state)
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the running tracker instead of reading the store")
	return cmd
}

func loadStoredState(ctx context.Context, cfg cliconfig.Config) (domain.State, error) {
	var store ports.StateRepository
	switch cfg.StoreBackend {
	case cliconfig.StoreRedis:
		rcfg := redisAdapter.DefaultConfig()
		rcfg.URL = cfg.RedisURL
		rcfg.Key = cfg.RedisKey
		rcfg.RetryAttempts = 1
		client, err := redisAdapter.Connect(ctx, rcfg)
		if err != nil {
			return domain.StateStart, fmt.Errorf("connect redis: %w", err)
		}
		defer client.Close()
		store = redisAdapter.NewStateStore(client, cfg.RedisKey)
	default:
		store = fs.NewStateFileRepository(cfg.StateDir)
	}
	return store.Load(ctx)
}

func newInjectCommand(cfg *cliconfig.Config, load configLoader) *cobra.Command {
	var redelivered bool
	events := make([]string, 0, len(domain.EventKinds()))
	for _, k := range domain.EventKinds() {
		events = append(events, k.String())
	}

	cmd := &cobra.Command{
		Use:       "inject <event>",
		Short:     "Queue an event on the running tracker",
		Long:      "Queue an event on the running tracker. Events: " + strings.Join(events, ", ") + ".",
		Args:      cobra.ExactArgs(1),
		ValidArgs: events,
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := domain.ParseEventKind(args[0])
			if err != nil {
				return err
			}
			if _, err := load(cmd); err != nil {
				return err
			}
			return injectEvent(cmd, *cfg, kind, redelivered)
		},
	}
	cmd.Flags().BoolVar(&redelivered, "redelivered", false, "mark the event as a redelivery")
	return cmd
}

func newForceCommand(cfg *cliconfig.Config, load configLoader, use, short string, kind domain.EventKind) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Long:  fmt.Sprintf("%s. Same as: tripdiary inject %s", short, kind),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(cmd); err != nil {
				return err
			}
			return injectEvent(cmd, *cfg, kind, false)
		},
	}
}

func injectEvent(cmd *cobra.Command, cfg cliconfig.Config, kind domain.EventKind, redelivered bool) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), clientTimeout)
	defer cancel()

	if err := newClient(cfg).Inject(ctx, kind, redelivered); err != nil {
		return fmt.Errorf("inject %s: %w", kind, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "queued %s\n", kind)
	return nil
}

func newClient(cfg cliconfig.Config) *httpAdapter.ControlClient {
	addr := cfg.ControlAddr
	if addr == "" {
		addr = cliconfig.DefaultControlAddr
	}
	return httpAdapter.NewControlClient(addr, &http.Client{Timeout: clientTimeout})
}

func newHistoryCommand(cfg *cliconfig.Config, load configLoader) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print the transition journal, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(cmd); err != nil {
				return err
			}
			journal := fs.NewJournal(cfg.StateDir, fs.DefaultJournalConfig(), logAdapter.NewNoopLogger())
			recs, err := journal.Read(limit)
			if err != nil {
				return fmt.Errorf("read journal: %w", err)
			}
			if asJSON {
				return writeHistoryJSON(cmd.OutOrStdout(), recs)
			}
			return writeHistory(cmd.OutOrStdout(), recs)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of newest records; 0 prints all")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print one JSON record per line")
	return cmd
}

func writeHistory(w io.Writer, recs []domain.TransitionRecord) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "COMMITTED\tFROM\tEVENT\tTO\tRESULT\tACTIONS")
	for _, r := range recs {
		result := "ok"
		if !r.Succeeded {
			result = "failed"
		}
		if r.Redelivered {
			result += " (redelivered)"
		}
		actions := make([]string, 0, len(r.Actions))
		for _, a := range r.Actions {
			actions = append(actions, a.Kind.String()+"="+a.Outcome.String())
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CommittedAt.Local().Format(time.RFC3339),
			r.From, r.Event, r.To, result, strings.Join(actions, " "))
	}
	return tw.Flush()
}

func writeHistoryJSON(w io.Writer, recs []domain.TransitionRecord) error {
	enc := json.NewEncoder(w)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			return err
		}
	}
	return nil
}

package tripdiary_test

import (
	"context"
	"fmt"
	"os"

	"github.com/bft-labs/tripdiary/pkg/tripdiary"
)

// ExampleNew demonstrates how to embed the tracking service.
func ExampleNew() {
	dir, err := os.MkdirTemp("", "tripdiary-example")
	if err != nil {
		fmt.Println(err)
		return
	}
	defer os.RemoveAll(dir)

	cfg := tripdiary.DefaultConfig()
	cfg.StateDir = dir

	svc, err := tripdiary.New(cfg)
	if err != nil {
		fmt.Printf("failed to create service: %v\n", err)
		return
	}
	defer svc.Close()

	fmt.Printf("Initial phase: %s\n", svc.Status())

	if err := svc.Start(context.Background()); err != nil {
		fmt.Printf("failed to start: %v\n", err)
		return
	}
	status := svc.Status()
	fmt.Printf("Status is valid: %v\n", status == tripdiary.PhaseStarting || status == tripdiary.PhaseRunning)

	_ = svc.Stop()
	fmt.Printf("Final phase: %s\n", svc.Status())

	// Output:
	// Initial phase: Stopped
	// Status is valid: true
	// Final phase: Stopped
}

// Example_withEventHandler demonstrates how to observe commits.
func Example_withEventHandler() {
	cfg := tripdiary.DefaultConfig()
	cfg.StateDir = os.TempDir()

	svc, err := tripdiary.New(cfg, tripdiary.WithEventHandler(&commitPrinter{}))
	if err != nil {
		fmt.Printf("failed to create service: %v\n", err)
		return
	}
	_ = svc
}

// commitPrinter prints every commit.
type commitPrinter struct {
	tripdiary.BaseEventHandler
}

func (commitPrinter) OnCommit(e tripdiary.CommitEvent) {
	fmt.Printf("%s: %s --%s--> %s\n", e.DispatchID, e.From, e.Event, e.To)
}

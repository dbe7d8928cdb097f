package daemon_test

import (
	"context"
	"testing"
	"time"

	"shortcast/internal/daemon"
	"shortcast/internal/pipeline"
	"shortcast/internal/testsupport"
	"shortcast/internal/workflow"
)

type idleProcessor struct{}

func (idleProcessor) Process(context.Context, string) (pipeline.Result, error) {
	return pipeline.Result{}, nil
}

type idlePublisher struct{}

func (idlePublisher) Publish(context.Context, string, string, string, []string) (string, string, error) {
	return "", "", nil
}

func TestDaemonLockExcludesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	store := testsupport.MustOpenStore(t, cfg)

	orch := workflow.NewOrchestrator(cfg, store, nil, nil, idleProcessor{}, idlePublisher{})
	first, err := daemon.New(cfg, store, nil, orch, nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := first.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer first.Stop()
	if !first.Running() {
		t.Fatal("daemon not running after Start")
	}

	secondStore := testsupport.MustOpenStore(t, cfg)
	second, err := daemon.New(cfg, secondStore, nil, workflow.NewOrchestrator(cfg, secondStore, nil, nil, idleProcessor{}, idlePublisher{}), nil)
	if err != nil {
		t.Fatalf("New second: %v", err)
	}
	if err := second.Start(ctx); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}

	first.Stop()
	if first.Running() {
		t.Error("daemon still running after Stop")
	}

	if err := second.Start(ctx); err != nil {
		t.Fatalf("restart after release: %v", err)
	}
	second.Stop()
}

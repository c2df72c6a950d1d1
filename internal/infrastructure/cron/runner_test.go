package cronrunner

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunnerRejectsBadSpec(t *testing.T) {
	r := New(context.Background())
	if _, err := r.Add("bad", "not a schedule", func(context.Context) {}); err == nil {
		t.Fatal("expected parse error")
	}
	if r.Len() != 0 {
		t.Errorf("bad spec must not be scheduled")
	}
}

func TestRunnerAcceptsSpecs(t *testing.T) {
	r := New(context.Background())
	for _, spec := range []string{"@every 1m", "*/30 * * * * *", "0 * * * *"} {
		if _, err := r.Add("job", spec, func(context.Context) {}); err != nil {
			t.Errorf("spec %q rejected: %v", spec, err)
		}
	}
	if r.Len() != 3 {
		t.Errorf("expected 3 jobs, got %d", r.Len())
	}
}

func TestRunnerRunsJob(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	r := New(ctx)

	var runs atomic.Int32
	if _, err := r.Add("tick", "@every 1s", func(context.Context) { runs.Add(1) }); err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	r.Start()
	defer r.Stop()

	deadline := time.Now().Add(3 * time.Second)
	for runs.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if runs.Load() == 0 {
		t.Error("job never ran")
	}
}

package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"astrodash/internal/domain/model"
)

type fakeDirectory struct{ tenants []model.Tenant }

func (d fakeDirectory) Resolve(ctx context.Context, id string) (model.Tenant, error) {
	for _, t := range d.tenants {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Tenant{}, errors.New("not found")
}

func (d fakeDirectory) List(ctx context.Context) []model.Tenant { return d.tenants }

type fakeSnapshots struct {
	mu    sync.Mutex
	calls int
}

func (s *fakeSnapshots) SnapshotOf(ctx context.Context, t model.Tenant) model.TenantSnapshot {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return model.TenantSnapshot{
		Positions: []model.Position{{Side: "BUY", Label: t.ID}},
		Equity:    model.Equity{"peak_equity": 100.0},
	}
}

type fakeViewer struct {
	id   string
	fail error

	mu     sync.Mutex
	got    [][]byte
	closed bool
}

func (v *fakeViewer) ID() string { return v.id }

func (v *fakeViewer) Send(ctx context.Context, msg []byte) error {
	if v.fail != nil {
		return v.fail
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.got = append(v.got, msg)
	return nil
}

func (v *fakeViewer) Close() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	return nil
}

func (v *fakeViewer) received() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.got)
}

type fakeMirror struct {
	msgs    [][]byte
	tenants []map[string]json.RawMessage
}

func (m *fakeMirror) Publish(ctx context.Context, msg []byte, tenants map[string]json.RawMessage) error {
	m.msgs = append(m.msgs, msg)
	m.tenants = append(m.tenants, tenants)
	return nil
}

func newTestHub(mirror *fakeMirror) (*Hub, *fakeSnapshots) {
	snaps := &fakeSnapshots{}
	deps := HubDeps{
		Tenants:   fakeDirectory{tenants: []model.Tenant{{ID: "alice"}, {ID: "bob"}}},
		Snapshots: snaps,
	}
	if mirror != nil {
		deps.Mirror = mirror
	}
	return NewHub(deps), snaps
}

func TestHubDropsFailingViewerOnly(t *testing.T) {
	hub, _ := newTestHub(nil)
	a := &fakeViewer{id: "a"}
	b := &fakeViewer{id: "b", fail: errors.New("broken pipe")}
	c := &fakeViewer{id: "c"}
	for _, v := range []*fakeViewer{a, b, c} {
		hub.Attach(v)
	}

	delivered := hub.Tick(context.Background())
	if delivered != 2 {
		t.Fatalf("expected 2 deliveries, got %d", delivered)
	}
	if hub.Len() != 2 {
		t.Fatalf("expected failing viewer detached, %d viewers left", hub.Len())
	}
	if a.received() != 1 || c.received() != 1 {
		t.Errorf("expected exactly one payload each, got a=%d c=%d", a.received(), c.received())
	}
	if !b.closed {
		t.Errorf("failed viewer should be closed")
	}
}

func TestHubPayloadShape(t *testing.T) {
	hub, _ := newTestHub(nil)
	v := &fakeViewer{id: "v"}
	hub.Attach(v)
	hub.Tick(context.Background())

	var update struct {
		Type string `json:"type"`
		Data map[string]struct {
			Positions    []model.Position `json:"positions"`
			Equity       model.Equity     `json:"equity"`
			LatestSignal json.RawMessage  `json:"latest_signal"`
		} `json:"data"`
	}
	if err := json.Unmarshal(v.got[0], &update); err != nil {
		t.Fatalf("payload is not valid json: %v", err)
	}
	if update.Type != MessageTypeUpdate {
		t.Errorf("expected type %q, got %q", MessageTypeUpdate, update.Type)
	}
	if len(update.Data) != 2 {
		t.Fatalf("expected 2 tenants, got %d", len(update.Data))
	}
	if got := update.Data["bob"].Positions; len(got) != 1 || got[0].Label != "bob" {
		t.Errorf("unexpected bob positions: %+v", got)
	}
	if got := string(update.Data["alice"].LatestSignal); got != "{}" {
		t.Errorf("expected empty latest_signal object, got %s", got)
	}
}

func TestHubTicksWhileIdle(t *testing.T) {
	mirror := &fakeMirror{}
	hub, snaps := newTestHub(mirror)

	if hub.State() != StateIdle {
		t.Fatalf("expected idle hub")
	}
	if n := hub.Tick(context.Background()); n != 0 {
		t.Errorf("expected no deliveries, got %d", n)
	}
	if snaps.calls != 2 {
		t.Errorf("expected one snapshot per tenant, got %d", snaps.calls)
	}
	if len(mirror.msgs) != 1 || len(mirror.tenants[0]) != 2 {
		t.Errorf("expected mirror to receive the update, got %d", len(mirror.msgs))
	}
}

func TestHubDetachIsIdempotent(t *testing.T) {
	hub, _ := newTestHub(nil)
	v := &fakeViewer{id: "v"}
	hub.Attach(v)
	if hub.State() != StateActive {
		t.Fatalf("expected active hub")
	}

	if !hub.Detach(v) {
		t.Errorf("first detach should report removal")
	}
	if hub.Detach(v) {
		t.Errorf("second detach should be a no-op")
	}
	if hub.State() != StateIdle {
		t.Errorf("expected idle hub after detach")
	}
}

func TestHubDetachKeepsReplacement(t *testing.T) {
	hub, _ := newTestHub(nil)
	old := &fakeViewer{id: "same"}
	fresh := &fakeViewer{id: "same"}
	hub.Attach(old)
	hub.Attach(fresh)

	if hub.Detach(old) {
		t.Errorf("detaching a replaced viewer must not remove its successor")
	}
	if hub.Len() != 1 {
		t.Errorf("expected successor to stay attached")
	}
}

func TestHubWelcome(t *testing.T) {
	hub, _ := newTestHub(nil)
	v := &fakeViewer{id: "v"}
	hub.Attach(v)
	if !hub.Welcome(context.Background(), v) {
		t.Fatalf("welcome should succeed")
	}
	if v.received() != 1 {
		t.Errorf("expected one welcome payload, got %d", v.received())
	}
}

func TestHubRunStopsOnCancel(t *testing.T) {
	hub := NewHub(HubDeps{
		Tenants:   fakeDirectory{},
		Snapshots: &fakeSnapshots{},
		Interval:  5 * time.Millisecond,
	})
	v := &fakeViewer{id: "v"}
	hub.Attach(v)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- hub.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for v.received() < 2 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 2 ticks, got %d", v.received())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

package home

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/meetthepeople/mtp/internal/api"
	"github.com/meetthepeople/mtp/internal/heartbeat"
	"github.com/meetthepeople/mtp/internal/session"
)

type fakeClient struct {
	mu     sync.Mutex
	cards  map[int64]api.Communication
	failed map[int64]bool
	calls  []int64
}

func (c *fakeClient) Communication(_ context.Context, userID int64) (api.Communication, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, userID)
	if c.failed[userID] {
		return api.Communication{}, &api.Error{StatusCode: 500, Message: "boom"}
	}
	return c.cards[userID], nil
}

// manualScheduler installs jobs without ever firing them.
type manualScheduler struct {
	live atomic.Int32
}

func (s *manualScheduler) Every(time.Duration, func()) (func(), error) {
	s.live.Add(1)
	var once sync.Once
	return func() { once.Do(func() { s.live.Add(-1) }) }, nil
}

type countingReporter struct {
	calls atomic.Int32
}

func (r *countingReporter) Capture(context.Context, string) error {
	r.calls.Add(1)
	return nil
}

func newPresence(t *testing.T, s *session.Session) (*heartbeat.Controller, *manualScheduler, *countingReporter) {
	t.Helper()
	scheduler := &manualScheduler{}
	reporter := &countingReporter{}
	ctrl, err := heartbeat.New(reporter, s, heartbeat.WithScheduler(scheduler))
	if err != nil {
		t.Fatalf("heartbeat.New() error = %v", err)
	}
	return ctrl, scheduler, reporter
}

var base = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func testClient() *fakeClient {
	return &fakeClient{
		cards: map[int64]api.Communication{
			2: {UserID: 2, UserName: "Old", LastMessageContent: "hey", LastMessageTime: api.Time{Time: base.Add(-2 * time.Hour)}},
			3: {UserID: 3, UserName: "New", LastMessageContent: "yo", LastMessageTime: api.Time{Time: base.Add(-time.Minute)}},
			4: {UserName: "Quiet"},
		},
		failed: map[int64]bool{},
	}
}

func TestConversationsSortedAndMerged(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := session.New(session.NewMemoryStore())
	if err := s.AddPeers(ctx, 2, 4); err != nil {
		t.Fatalf("AddPeers() error = %v", err)
	}
	client := testClient()
	screen := NewScreen(client, s, nil, &bytes.Buffer{}, Options{Peers: []int64{3, 2, 0}})

	list, err := screen.Conversations(ctx)
	if err != nil {
		t.Fatalf("Conversations() error = %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("len(list) = %d, want 3", len(list))
	}
	if list[0].UserID != 3 || list[1].UserID != 2 || list[2].UserID != 4 {
		t.Fatalf("order = %d,%d,%d; want 3,2,4", list[0].UserID, list[1].UserID, list[2].UserID)
	}
	if len(client.calls) != 3 {
		t.Fatalf("Communication calls = %v, want 3 distinct peers", client.calls)
	}
}

func TestConversationsPartialAndTotalFailure(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := session.New(session.NewMemoryStore())
	client := testClient()
	client.failed[2] = true
	screen := NewScreen(client, s, nil, &bytes.Buffer{}, Options{Peers: []int64{2, 3}})

	list, err := screen.Conversations(ctx)
	if err != nil {
		t.Fatalf("Conversations() error = %v", err)
	}
	if len(list) != 1 || list[0].UserID != 3 {
		t.Fatalf("list = %+v, want only peer 3", list)
	}

	client.failed[3] = true
	if _, err := screen.Conversations(ctx); !errors.Is(err, ErrLoadConversations) {
		t.Fatalf("Conversations() error = %v, want ErrLoadConversations", err)
	}
}

func TestConversationsNoPeers(t *testing.T) {
	t.Parallel()

	screen := NewScreen(testClient(), session.New(session.NewMemoryStore()), nil, &bytes.Buffer{}, Options{})
	list, err := screen.Conversations(context.Background())
	if err != nil || len(list) != 0 {
		t.Fatalf("Conversations() = %v, %v; want empty", list, err)
	}
}

func TestRunMountsAndReleasesHeartbeat(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := session.New(session.NewMemoryStore())
	if err := s.SetLogin(ctx, "jwt", api.User{ID: 1, Name: "Asha"}); err != nil {
		t.Fatalf("SetLogin() error = %v", err)
	}
	presence, scheduler, reporter := newPresence(t, s)

	var out bytes.Buffer
	screen := NewScreen(testClient(), s, presence, &out, Options{Peers: []int64{3}})
	if err := screen.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if got := reporter.calls.Load(); got != 1 {
		t.Fatalf("report calls = %d, want 1 immediate report", got)
	}
	if presence.Active() {
		t.Fatal("heartbeat still active after Run returned")
	}
	if got := scheduler.live.Load(); got != 0 {
		t.Fatalf("live timers = %d, want 0", got)
	}
	if _, ok, _ := s.LastReport(ctx); !ok {
		t.Fatal("last report marker not set")
	}
	for _, want := range []string{"Welcome back, Asha", "Conversations (1)", "New"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}

	// Remounting right away is debounced.
	if err := screen.Run(ctx); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}
	if got := reporter.calls.Load(); got != 1 {
		t.Fatalf("report calls after remount = %d, want 1", got)
	}
}

func TestRunWatchUntilCancelled(t *testing.T) {
	t.Parallel()

	s := session.New(session.NewMemoryStore())
	presence, scheduler, _ := newPresence(t, s)
	client := testClient()
	screen := NewScreen(client, s, presence, &bytes.Buffer{}, Options{
		Peers:   []int64{2},
		Watch:   true,
		Refresh: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- screen.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for {
		client.mu.Lock()
		n := len(client.calls)
		client.mu.Unlock()
		if n >= 2 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("screen did not refresh")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !presence.Active() {
		t.Fatal("heartbeat not active while mounted")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if presence.Active() || scheduler.live.Load() != 0 {
		t.Fatal("heartbeat not released after cancel")
	}
}

func TestRunReportsTotalFailure(t *testing.T) {
	t.Parallel()

	s := session.New(session.NewMemoryStore())
	presence, _, _ := newPresence(t, s)
	client := testClient()
	client.failed[2] = true

	var out bytes.Buffer
	screen := NewScreen(client, s, presence, &out, Options{Peers: []int64{2}})
	if err := screen.Run(context.Background()); !errors.Is(err, ErrLoadConversations) {
		t.Fatalf("Run() error = %v, want ErrLoadConversations", err)
	}
	if !strings.Contains(out.String(), "failed to load conversations") {
		t.Fatalf("output = %q", out.String())
	}
	if presence.Active() {
		t.Fatal("heartbeat still active after failed Run")
	}
}

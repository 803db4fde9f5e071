package bridge

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestAddClientDuplicateID(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager()
	first := &fakeClient{}

	if err := manager.AddClient(ctx, "git", fakeDialer{client: first}, ClientInfo{Name: "test", Version: "1.0.0"}); err != nil {
		t.Fatalf("AddClient returned error: %v", err)
	}

	second := &fakeClient{}
	err := manager.AddClient(ctx, "git", fakeDialer{client: second}, ClientInfo{})
	if err == nil {
		t.Fatalf("expected duplicate registration to fail")
	}
	if KindOf(err) != KindInit {
		t.Errorf("expected KindInit, got %s", KindOf(err))
	}

	got, ok := manager.Client("git")
	if !ok {
		t.Fatalf("expected first client to remain registered")
	}
	if got != Client(first) {
		t.Errorf("expected lookup to return the first client")
	}
	if first.isClosed() {
		t.Errorf("first client must be unaffected by the failed re-registration")
	}
}

func TestClientAbsentIsNotAnError(t *testing.T) {
	manager := NewConnectionManager()
	if _, ok := manager.Client("missing"); ok {
		t.Errorf("expected lookup of unregistered id to report absence")
	}
	if manager.Has("missing") {
		t.Errorf("expected Has to report absence")
	}
}

func TestRemoveClient(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager()
	client := &fakeClient{}
	if err := manager.AddClient(ctx, "echo", fakeDialer{client: client}, ClientInfo{}); err != nil {
		t.Fatalf("AddClient returned error: %v", err)
	}

	removed, ok := manager.RemoveClient("echo")
	if !ok {
		t.Fatalf("expected RemoveClient to return the handle")
	}
	if removed != Client(client) {
		t.Errorf("expected ownership of the registered client")
	}
	if manager.Has("echo") {
		t.Errorf("expected client to be gone after removal")
	}
	if _, ok := manager.RemoveClient("echo"); ok {
		t.Errorf("expected removing an absent id to be a no-op")
	}
}

func TestCloseClientReleasesTransport(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager()
	client := &fakeClient{}
	if err := manager.AddClient(ctx, "echo", fakeDialer{client: client}, ClientInfo{}); err != nil {
		t.Fatalf("AddClient returned error: %v", err)
	}
	if err := manager.CloseClient("echo"); err != nil {
		t.Fatalf("CloseClient returned error: %v", err)
	}
	if !client.isClosed() {
		t.Errorf("expected underlying client to be closed")
	}
	if err := manager.CloseClient("echo"); err != nil {
		t.Errorf("closing an absent id should be a no-op, got %v", err)
	}
}

func TestManagerCloseReleasesAll(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager()
	a := &fakeClient{}
	b := &fakeClient{}
	if err := manager.AddClient(ctx, "a", fakeDialer{client: a}, ClientInfo{}); err != nil {
		t.Fatalf("AddClient returned error: %v", err)
	}
	if err := manager.AddClient(ctx, "b", fakeDialer{client: b}, ClientInfo{}); err != nil {
		t.Fatalf("AddClient returned error: %v", err)
	}
	if err := manager.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if !a.isClosed() || !b.isClosed() {
		t.Errorf("expected every client to be closed on teardown")
	}
	if manager.Count() != 0 {
		t.Errorf("expected empty registry after Close, got %d", manager.Count())
	}
}

func TestAddClientTimeout(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager(WithTimeout(time.Millisecond))

	start := time.Now()
	err := manager.AddClient(ctx, "slow", fakeDialer{delay: 5 * time.Second}, ClientInfo{})
	elapsed := time.Since(start)

	if err == nil {
		t.Fatalf("expected handshake against a slow endpoint to time out")
	}
	if KindOf(err) != KindMCP {
		t.Errorf("expected KindMCP for a timed-out handshake, got %s", KindOf(err))
	}
	if elapsed > time.Second {
		t.Errorf("expected the timeout to bound the wait, took %s", elapsed)
	}
	if manager.Has("slow") {
		t.Errorf("expected no registration after a failed handshake")
	}
}

func TestAddClientDialFailureClassified(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager()
	err := manager.AddClient(ctx, "broken", fakeDialer{err: errors.New("spawn failed")}, ClientInfo{})
	if KindOf(err) != KindMCP {
		t.Errorf("expected dial failures to surface as KindMCP, got %v", err)
	}
}

func TestAddClientValidatesInput(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager()
	if err := manager.AddClient(ctx, "", fakeDialer{}, ClientInfo{}); KindOf(err) != KindInit {
		t.Errorf("expected KindInit for empty id, got %v", err)
	}
	if err := manager.AddClient(ctx, "x", nil, ClientInfo{}); KindOf(err) != KindInit {
		t.Errorf("expected KindInit for nil dialer, got %v", err)
	}
}

func TestIDsSortedAndCount(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager()
	for _, id := range []string{"zeta", "alpha", "mid"} {
		if err := manager.AddClient(ctx, id, fakeDialer{}, ClientInfo{}); err != nil {
			t.Fatalf("AddClient %s returned error: %v", id, err)
		}
	}
	ids := manager.IDs()
	if len(ids) != 3 || ids[0] != "alpha" || ids[1] != "mid" || ids[2] != "zeta" {
		t.Errorf("expected sorted ids, got %v", ids)
	}
	if manager.Count() != 3 {
		t.Errorf("expected count 3, got %d", manager.Count())
	}
}

func TestCallToolTimeout(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager(WithTimeout(time.Millisecond))
	slow := &fakeClient{
		callFn: func(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
			<-ctx.Done()
			return ToolResult{}, ctx.Err()
		},
	}
	if err := manager.AddClient(ctx, "slow", fakeDialer{client: slow}, ClientInfo{}); err != nil {
		t.Fatalf("AddClient returned error: %v", err)
	}

	start := time.Now()
	_, err := manager.CallTool(ctx, "slow", "sleep", nil)
	if err == nil {
		t.Fatalf("expected invocation to time out")
	}
	if KindOf(err) != KindMCP {
		t.Errorf("expected KindMCP for a timed-out call, got %s", KindOf(err))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("expected the timeout to bound the wait, took %s", elapsed)
	}
}

func TestCallToolUnknownClient(t *testing.T) {
	manager := NewConnectionManager()
	_, err := manager.CallTool(context.Background(), "ghost", "anything", nil)
	if KindOf(err) != KindToolExecution {
		t.Errorf("expected KindToolExecution for unknown client, got %v", err)
	}
}

func TestListToolsUnknownClient(t *testing.T) {
	manager := NewConnectionManager()
	_, err := manager.ListTools(context.Background(), "ghost")
	if KindOf(err) != KindMCP {
		t.Errorf("expected KindMCP for listing on unknown client, got %v", err)
	}
}

func TestConcurrentRegistrationAndLookup(t *testing.T) {
	ctx := context.Background()
	manager := NewConnectionManager()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			manager.Client("a")
			manager.IDs()
			manager.Count()
		}
	}()
	for i := 0; i < 100; i++ {
		id := string(rune('a' + i%26))
		_ = manager.AddClient(ctx, id, fakeDialer{}, ClientInfo{})
	}
	<-done
}

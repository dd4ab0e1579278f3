package websocket

import (
	"sort"
	"testing"
	"time"
)

func newTestClient(h *Hub, accountID int64, buffer int) *Client {
	return &Client{
		hub:       h,
		send:      make(chan []byte, buffer),
		sessionID: "test-session",
		accountID: accountID,
	}
}

func register(t *testing.T, h *Hub, c *Client) {
	t.Helper()
	h.register <- c
	waitFor(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		return h.sessions[c.accountID][c]
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func TestHub_BroadcastReachesEverySessionOfAccount(t *testing.T) {
	h := NewHub()
	go h.Run()

	a1 := newTestClient(h, 7, 4)
	a2 := newTestClient(h, 7, 4)
	other := newTestClient(h, 8, 4)
	register(t, h, a1)
	register(t, h, a2)
	register(t, h, other)

	h.Broadcast(7, []byte("payload"))

	for _, c := range []*Client{a1, a2} {
		select {
		case msg := <-c.send:
			if string(msg) != "payload" {
				t.Errorf("unexpected payload: %s", msg)
			}
		case <-time.After(time.Second):
			t.Fatal("session did not receive the broadcast")
		}
	}

	select {
	case msg := <-other.send:
		t.Errorf("account 8 must not receive account 7 payloads, got %s", msg)
	default:
	}
}

func TestHub_SlowSessionIsDropped(t *testing.T) {
	h := NewHub()
	go h.Run()

	slow := newTestClient(h, 7, 1)
	register(t, h, slow)

	// Fill the buffer, then overflow it.
	h.Broadcast(7, []byte("first"))
	h.Broadcast(7, []byte("second"))

	waitFor(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		_, ok := h.sessions[7]
		return !ok
	})
}

func TestHub_ActiveAccounts(t *testing.T) {
	h := NewHub()
	go h.Run()

	if got := h.ActiveAccounts(); len(got) != 0 {
		t.Fatalf("expected no active accounts initially, got %v", got)
	}

	register(t, h, newTestClient(h, 7, 4))
	register(t, h, newTestClient(h, 7, 4))
	register(t, h, newTestClient(h, 9, 4))

	accounts := h.ActiveAccounts()
	sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })
	if len(accounts) != 2 || accounts[0] != 7 || accounts[1] != 9 {
		t.Errorf("expected accounts [7 9], got %v", accounts)
	}
}

func TestHub_UnregisterLastSessionRemovesAccount(t *testing.T) {
	h := NewHub()
	go h.Run()

	c := newTestClient(h, 7, 4)
	register(t, h, c)

	h.unregister <- c
	waitFor(t, func() bool {
		h.mu.RLock()
		defer h.mu.RUnlock()
		_, ok := h.sessions[7]
		return !ok
	})

	if got := h.ActiveAccounts(); len(got) != 0 {
		t.Errorf("expected no active accounts after unregister, got %v", got)
	}
}

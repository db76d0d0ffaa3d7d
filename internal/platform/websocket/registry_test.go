package websocket

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// fakeConn is an in-memory Conn for registry tests.
type fakeConn struct {
	mu     sync.Mutex
	closed bool
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {} // block forever; registry tests never read
}

func (f *fakeConn) WriteMessage(messageType int, data []byte) error { return nil }

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func TestRegistry_RegisterAndSend(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()
	cl := r.Register(id, &fakeConn{})

	if !r.Connected(id) {
		t.Fatal("expected identity to be connected")
	}
	if !r.Send(id, Event{Type: "NEW_ASSESSMENT", Message: "ready", Timestamp: time.Now()}) {
		t.Fatal("expected send to succeed")
	}

	select {
	case data := <-cl.send:
		if len(data) == 0 {
			t.Error("expected serialized event")
		}
	default:
		t.Error("expected event in send buffer")
	}
}

func TestRegistry_SendToUnknownIdentity(t *testing.T) {
	r := NewRegistry()
	if r.Send(uuid.New(), Event{Type: "SYSTEM"}) {
		t.Fatal("send to unknown identity should return false")
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()
	cl := r.Register(id, &fakeConn{})

	r.Unregister(id, cl)
	if r.Connected(id) {
		t.Fatal("expected identity to be disconnected")
	}
	if r.Count() != 0 {
		t.Errorf("expected count 0, got %d", r.Count())
	}
}

func TestRegistry_RegisterReplacesPrevious(t *testing.T) {
	r := NewRegistry()
	id := uuid.New()
	first := &fakeConn{}
	second := &fakeConn{}

	old := r.Register(id, first)
	r.Register(id, second)

	if !first.isClosed() {
		t.Error("expected first connection to be closed on replacement")
	}
	if r.Count() != 1 {
		t.Errorf("expected count 1, got %d", r.Count())
	}

	// A stale unregister from the replaced connection must not evict the new one.
	r.Unregister(id, old)
	if !r.Connected(id) {
		t.Error("stale unregister should not remove the replacement connection")
	}
}

func TestHandleConnect_MissingToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHandler(NewRegistry(), "secret", testLogger())
	err := h.HandleConnect(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestHandleConnect_InvalidToken(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/ws?token=garbage", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := NewHandler(NewRegistry(), "secret", testLogger())
	err := h.HandleConnect(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %v", err)
	}
}

func TestRegistry_SendDuringChurnDoesNotPanic(t *testing.T) {
	r := NewRegistry()
	identity := uuid.New()

	done := make(chan struct{})
	var wg sync.WaitGroup

	// One goroutine churns the connection (register, replace, unregister)
	// while others push events at it. Closing the buffer and sending on it
	// are serialized by the registry lock; any interleaving that sends on
	// a closed channel panics the test.
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			c1 := r.Register(identity, &fakeConn{})
			c2 := r.Register(identity, &fakeConn{}) // replacement closes c1's buffer
			r.Unregister(identity, c1)              // stale, no-op
			r.Unregister(identity, c2)
		}
	}()

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				r.Send(identity, Event{Type: "SYSTEM", Message: "ping"})
			}
		}()
	}

	time.Sleep(200 * time.Millisecond)
	close(done)
	wg.Wait()
}

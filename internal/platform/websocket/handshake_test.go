package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"github.com/spineclinic/intake/internal/platform/auth"
)

// newServerApp mirrors the production route layout: bearer auth guards the
// API group only, while the WebSocket endpoint authenticates itself from
// the token query parameter.
func newServerApp(registry *Registry, secret string) *echo.Echo {
	e := echo.New()
	api := e.Group("/api/v1")
	api.Use(auth.JWTMiddleware(secret))
	api.GET("/patients", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	NewHandler(registry, secret, testLogger()).RegisterRoutes(e)
	return e
}

func wsAddr(srv *httptest.Server, path string) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + path
}

func TestHandshake_QueryTokenThroughMiddlewareChain(t *testing.T) {
	registry := NewRegistry()
	srv := httptest.NewServer(newServerApp(registry, "secret"))
	defer srv.Close()

	assistantID := mustUUID(t)
	token, err := auth.GenerateToken("secret", assistantID, auth.RoleAssistant, "Front Desk", time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	conn, resp, err := gorillawebsocket.DefaultDialer.Dial(wsAddr(srv, "/ws?token="+token), nil)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("query-token handshake failed with status %d: %v", status, err)
	}
	defer conn.Close()

	deadline := time.After(2 * time.Second)
	for !registry.Connected(assistantID) {
		select {
		case <-deadline:
			t.Fatal("assistant never registered")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}

	if !registry.Send(assistantID, Event{Type: "SYSTEM", Message: "hello"}) {
		t.Fatal("send to connected assistant failed")
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read push: %v", err)
	}
	if !strings.Contains(string(data), `"message":"hello"`) {
		t.Errorf("push payload = %s", data)
	}
}

func TestHandshake_InvalidTokenThroughMiddlewareChain(t *testing.T) {
	srv := httptest.NewServer(newServerApp(NewRegistry(), "secret"))
	defer srv.Close()

	_, resp, err := gorillawebsocket.DefaultDialer.Dial(wsAddr(srv, "/ws?token=bogus"), nil)
	if err == nil {
		t.Fatal("invalid token must fail the handshake")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 handshake rejection, got %+v", resp)
	}
}

func TestHandshake_APIGroupStillRequiresBearer(t *testing.T) {
	srv := httptest.NewServer(newServerApp(NewRegistry(), "secret"))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/v1/patients")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("API request without bearer = %d, want 401", resp.StatusCode)
	}
}

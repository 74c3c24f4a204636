package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CourseHubBack/internal/config"
	"github.com/saeid-a/CourseHubBack/internal/live"
)

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	cfg := &config.Config{JWTSecret: "secret", NotifyTargeting: config.TargetingLatest, LiveBufferSize: 8, NotifyRetryTimes: 1}
	broker := NewBroker(cfg, nil)
	t.Cleanup(func() { _ = broker.Close() })

	app := fiber.New()
	hub := RegisterRoutes(app, cfg, nil, broker)
	t.Cleanup(hub.Shutdown)
	return app
}

func TestNewBrokerFallsBackToHub(t *testing.T) {
	broker := NewBroker(&config.Config{LiveBufferSize: 4}, nil)
	defer broker.Close()

	if _, ok := broker.(*live.Hub); !ok {
		t.Fatalf("expected in-process hub, got %T", broker)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	app := newTestApp(t)

	for _, route := range []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/me"},
		{http.MethodGet, "/api/v1/courses/C1/messages"},
		{http.MethodPost, "/api/v1/courses/C1/messages"},
		{http.MethodGet, "/api/v1/notifications"},
		{http.MethodPut, "/api/v1/notifications/read-all"},
		{http.MethodPut, "/api/v1/courses/C1/lessons/1/watched"},
	} {
		resp, err := app.Test(httptest.NewRequest(route.method, route.path, nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("%s %s: expected 401, got %d", route.method, route.path, resp.StatusCode)
		}
	}
}

func TestWebSocketRouteRequiresUpgrade(t *testing.T) {
	app := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/ws?token=abc", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Fatalf("expected 426, got %d", resp.StatusCode)
	}
}

func TestWebSocketRouteUsesQueryTokenAuth(t *testing.T) {
	app := newTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	// The header-based group middleware would have reported a missing header.
	if body["error"] != "Invalid or expired token" {
		t.Fatalf("unexpected error body: %v", body)
	}
}

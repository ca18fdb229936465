package routes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoohealth/internal/api/handlers"
	"github.com/yoockh/yoohealth/internal/auth"
	"github.com/yoockh/yoohealth/internal/metrics"
	"github.com/yoockh/yoohealth/internal/utils"
)

type rejectAll struct{}

func (rejectAll) Authenticate(context.Context, string) (*auth.Claims, error) {
	return nil, utils.E(utils.CodeUnauthorized, "test", "invalid token", nil)
}

func newRouter(m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	RegisterRoutes(r, Deps{
		Auth:          handlers.NewAuthHandler(nil),
		Chat:          handlers.NewChatHandler(nil),
		Topic:         handlers.NewTopicHandler(nil),
		Voice:         handlers.NewVoiceHandler(nil),
		VoiceWS:       handlers.NewVoiceWSHandler(nil, nil, nil),
		Authenticator: rejectAll{},
		Metrics:       m,
	})
	return r
}

func TestRegisteredRoutes(t *testing.T) {
	want := map[string]bool{
		"GET /ping": true, "GET /metrics": true,
		"POST /auth/signup": true, "POST /auth/login": true,
		"POST /auth/reset-password": true, "POST /auth/reset-password/confirm": true,
		"POST /auth/logout": true, "GET /auth/me": true,
		"PUT /auth/profile": true, "PUT /auth/profile/avatar": true,
		"GET /topics": true, "POST /topics": true,
		"POST /chat/messages": true, "GET /chat/messages": true,
		"POST /voice/transcribe": true, "GET /voice/transcripts": true,
		"GET /ws/voice": true,
	}
	for _, ri := range newRouter(metrics.New()).Routes() {
		delete(want, ri.Method+" "+ri.Path)
	}
	if len(want) != 0 {
		t.Fatalf("missing routes: %v", want)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	r := newRouter(nil)
	for _, p := range []struct{ method, path string }{
		{http.MethodGet, "/auth/me"},
		{http.MethodPost, "/topics"},
		{http.MethodGet, "/chat/messages"},
		{http.MethodPost, "/voice/transcribe"},
		{http.MethodGet, "/ws/voice"},
	} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(p.method, p.path, nil))
		if w.Code != http.StatusUnauthorized {
			t.Errorf("%s %s: status = %d", p.method, p.path, w.Code)
		}
	}

	// optional auth still rejects a bad token
	req := httptest.NewRequest(http.MethodPost, "/chat/messages", nil)
	req.Header.Set("Authorization", "Bearer nope")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("chat with bad token: status = %d", w.Code)
	}
}

func TestMetricsRouteOptional(t *testing.T) {
	w := httptest.NewRecorder()
	newRouter(nil).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("metrics disabled: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	newRouter(metrics.New()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("ping: status = %d", w.Code)
	}
}

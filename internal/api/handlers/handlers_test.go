package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoohealth/internal/api/middleware"
	"github.com/yoockh/yoohealth/internal/auth"
	"github.com/yoockh/yoohealth/internal/matcher"
	"github.com/yoockh/yoohealth/internal/models"
	"github.com/yoockh/yoohealth/internal/services"
	"github.com/yoockh/yoohealth/internal/utils"
)

func init() { gin.SetMode(gin.TestMode) }

type fakeChatSvc struct {
	gotUser, gotText, gotType string
	err                       error
}

func (f *fakeChatSvc) Send(_ context.Context, userID, text, messageType string) (*services.SendResult, error) {
	f.gotUser, f.gotText, f.gotType = userID, text, messageType
	if f.err != nil {
		return nil, f.err
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}
	return &services.SendResult{
		UserMessage: models.ChatMessageView{Text: text, Origin: models.OriginUser},
		BotMessage:  models.ChatMessageView{Text: "bot", Origin: models.OriginBot},
		ReplyKind:   matcher.ReplyGeneric,
	}, nil
}

func (f *fakeChatSvc) History(_ context.Context, userID string) ([]models.ChatMessageView, error) {
	f.gotUser = userID
	return []models.ChatMessageView{{ID: "m1", Text: "hi"}}, nil
}

func withUser(id string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id != "" {
			c.Set(middleware.CtxUserID, id)
		}
	}
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestChatSend(t *testing.T) {
	svc := &fakeChatSvc{}
	h := NewChatHandler(svc)
	r := gin.New()
	r.POST("/anon", h.Send)
	r.POST("/me", withUser("u1"), h.Send)

	w := do(r, http.MethodPost, "/anon", `{"text":"what is asthma"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	if svc.gotUser != "" {
		t.Fatalf("anonymous send carried user %q", svc.gotUser)
	}
	var res services.SendResult
	if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil || res.BotMessage.Text != "bot" {
		t.Fatalf("body = %s (%v)", w.Body, err)
	}

	if w := do(r, http.MethodPost, "/me", `{"text":"hi","message_type":"voice"}`); w.Code != http.StatusOK || svc.gotUser != "u1" || svc.gotType != "voice" {
		t.Fatalf("status = %d user=%q type=%q", w.Code, svc.gotUser, svc.gotType)
	}

	if w := do(r, http.MethodPost, "/anon", `{"text":"   "}`); w.Code != http.StatusNoContent {
		t.Fatalf("blank status = %d", w.Code)
	}

	if w := do(r, http.MethodPost, "/anon", `{`); w.Code != http.StatusBadRequest {
		t.Fatalf("bad json status = %d", w.Code)
	}
}

func TestChatSendMapsErrors(t *testing.T) {
	svc := &fakeChatSvc{err: utils.E(utils.CodeTimeout, "op", "reply timed out", context.DeadlineExceeded)}
	r := gin.New()
	r.POST("/chat", NewChatHandler(svc).Send)

	w := do(r, http.MethodPost, "/chat", `{"text":"hi"}`)
	if w.Code != http.StatusGatewayTimeout {
		t.Fatalf("status = %d", w.Code)
	}
	var apiErr APIError
	_ = json.Unmarshal(w.Body.Bytes(), &apiErr)
	if apiErr.Code != utils.CodeTimeout || apiErr.Message != "reply timed out" {
		t.Fatalf("error = %+v", apiErr)
	}
}

func TestChatHistoryRequiresUser(t *testing.T) {
	svc := &fakeChatSvc{}
	h := NewChatHandler(svc)
	r := gin.New()
	r.GET("/anon", h.History)
	r.GET("/me", withUser("u1"), h.History)

	if w := do(r, http.MethodGet, "/anon", ""); w.Code != http.StatusUnauthorized {
		t.Fatalf("anon status = %d", w.Code)
	}
	w := do(r, http.MethodGet, "/me", "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"messages"`) || svc.gotUser != "u1" {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
}

type fakeAuthSvc struct {
	services.AuthService
	loggedOut   *auth.Claims
	avatarType  string
	avatarBytes []byte
}

func (f *fakeAuthSvc) Signup(_ context.Context, name, email, _ string) (*services.AuthResult, error) {
	if email == "taken@example.com" {
		return nil, utils.E(utils.CodeConflict, "op", "email already registered", nil)
	}
	return &services.AuthResult{Token: "tok", User: &models.User{ID: "u1", Name: name, Email: email}}, nil
}

func (f *fakeAuthSvc) Login(context.Context, string, string) (*services.AuthResult, error) {
	return nil, utils.E(utils.CodeUnauthorized, "op", "invalid email or password", nil)
}

func (f *fakeAuthSvc) Logout(_ context.Context, c *auth.Claims) error {
	f.loggedOut = c
	return nil
}

func (f *fakeAuthSvc) RequestPasswordReset(context.Context, string) error { return nil }

func (f *fakeAuthSvc) UploadAvatar(_ context.Context, userID, contentType string, _ int64, r io.Reader) (*models.User, error) {
	f.avatarType = contentType
	f.avatarBytes, _ = io.ReadAll(r)
	url := "gs://bucket/avatar.png"
	return &models.User{ID: userID, AvatarURL: &url}, nil
}

func TestAuthHandlerStatuses(t *testing.T) {
	svc := &fakeAuthSvc{}
	h := NewAuthHandler(svc)
	claims := &auth.Claims{Role: "user"}

	r := gin.New()
	r.POST("/signup", h.Signup)
	r.POST("/login", h.Login)
	r.POST("/reset", h.RequestReset)
	r.POST("/logout", func(c *gin.Context) { c.Set(middleware.CtxClaims, claims) }, h.Logout)

	cases := []struct {
		path, body string
		want       int
	}{
		{"/signup", `{"name":"Ann","email":"ann@example.com","password":"Secret123"}`, http.StatusCreated},
		{"/signup", `{"name":"Ann","email":"taken@example.com","password":"Secret123"}`, http.StatusConflict},
		{"/login", `{"email":"ann@example.com","password":"nope"}`, http.StatusUnauthorized},
		{"/reset", `{"email":"nobody@example.com"}`, http.StatusAccepted},
		{"/logout", ``, http.StatusNoContent},
	}
	for _, tc := range cases {
		if w := do(r, http.MethodPost, tc.path, tc.body); w.Code != tc.want {
			t.Errorf("%s %s: status = %d, want %d (%s)", tc.path, tc.body, w.Code, tc.want, w.Body)
		}
	}
	if svc.loggedOut != claims {
		t.Fatal("logout did not receive the request claims")
	}
}

func TestUploadAvatarSniffsContentType(t *testing.T) {
	svc := &fakeAuthSvc{}
	r := gin.New()
	r.POST("/avatar", withUser("u1"), NewAuthHandler(svc).UploadAvatar)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 600)...)
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, _ := mw.CreateFormFile("file", "me.txt")
	_, _ = fw.Write(png)
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/avatar", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body=%s", w.Code, w.Body)
	}
	if svc.avatarType != "image/png" {
		t.Fatalf("content type = %q", svc.avatarType)
	}
	if !bytes.Equal(svc.avatarBytes, png) {
		t.Fatalf("service got %d bytes, want %d", len(svc.avatarBytes), len(png))
	}
}

func TestUploadAvatarMissingFile(t *testing.T) {
	r := gin.New()
	r.POST("/avatar", withUser("u1"), NewAuthHandler(&fakeAuthSvc{}).UploadAvatar)
	if w := do(r, http.MethodPost, "/avatar", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tasklist-svc/src/internal/config"
	"tasklist-svc/src/internal/middleware"
	"tasklist-svc/src/internal/models"
	"tasklist-svc/src/internal/session"
	"tasklist-svc/src/internal/token"
	"tasklist-svc/src/internal/user"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Stateful in-memory user service
type mockUserService struct {
	mu    sync.Mutex
	users map[string]*user.User // keyed by email, passwords kept as given
	creds map[string]string
}

func newMockUserService() *mockUserService {
	return &mockUserService{
		users: make(map[string]*user.User),
		creds: make(map[string]string),
	}
}

func (m *mockUserService) Register(ctx context.Context, email, password string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if email == "" || password == "" {
		return nil, models.ErrValidation
	}
	if _, exists := m.users[email]; exists {
		return nil, models.ErrEmailTaken
	}
	u := &user.User{ID: primitive.NewObjectID(), Email: email, CreatedAt: time.Now()}
	m.users[email] = u
	m.creds[email] = password
	return u, nil
}

func (m *mockUserService) FindByCredentials(ctx context.Context, email, password string) (*user.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, exists := m.users[email]
	if !exists || m.creds[email] != password {
		return nil, models.ErrInvalidCredentials
	}
	return u, nil
}

// Stateful in-memory session service
type mockSessionService struct {
	mu        sync.Mutex
	sessions  map[string][]models.Session // keyed by user id hex
	counter   int
	createErr error
}

func newMockSessionService() *mockSessionService {
	return &mockSessionService{sessions: make(map[string][]models.Session)}
}

func (m *mockSessionService) CreateSession(ctx context.Context, u *user.User) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return "", m.createErr
	}
	m.counter++
	s := models.Session{
		Token:     fmt.Sprintf("refresh-token-%d", m.counter),
		ExpiresAt: time.Now().Add(240 * time.Hour),
	}
	m.sessions[u.ID.Hex()] = append(m.sessions[u.ID.Hex()], s)
	u.Sessions = append(u.Sessions, s)
	return s.Token, nil
}

func (m *mockSessionService) ValidateSession(ctx context.Context, userID, refreshToken string) (*user.User, *models.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sessions, exists := m.sessions[userID]
	if !exists {
		return nil, nil, models.ErrUserNotFound
	}
	for i := range sessions {
		if sessions[i].Token == refreshToken {
			if session.HasRefreshTokenExpired(sessions[i].ExpiresAt) {
				return nil, nil, models.ErrSessionExpired
			}
			id, _ := primitive.ObjectIDFromHex(userID)
			return &user.User{ID: id, Sessions: sessions}, &sessions[i], nil
		}
	}
	return nil, nil, models.ErrSessionNotFound
}

func (m *mockSessionService) RevokeSession(ctx context.Context, u *user.User, refreshToken string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.sessions[u.ID.Hex()][:0]
	for _, s := range m.sessions[u.ID.Hex()] {
		if s.Token != refreshToken {
			kept = append(kept, s)
		}
	}
	m.sessions[u.ID.Hex()] = kept
	return nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	actions []string
}

func (p *recordingPublisher) PublishActivityWithDetails(userID, serviceName, action, ip, ua string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, action)
	return nil
}

type testEnv struct {
	router   *gin.Engine
	users    *mockUserService
	sessions *mockSessionService
	codec    *token.Codec
	activity *recordingPublisher
}

func setupEnv() *testEnv {
	gin.SetMode(gin.TestMode)

	cfg := &config.Configuration{
		App: config.Application{Timeout: 5},
		Security: config.SecuritySettings{
			JwtKey:                "handler-test-key",
			AccessTokenTTLMinutes: 15,
		},
	}

	users := newMockUserService()
	sessions := newMockSessionService()
	codec := token.NewCodec(&cfg.Security)
	activity := &recordingPublisher{}

	h := NewHandler(cfg, users, sessions, codec, activity)
	authMiddleware := middleware.NewAuthMiddleware(sessions, activity)

	router := gin.New()
	router.POST("/users", h.Register)
	router.POST("/users/login", h.Login)
	me := router.Group("/users/me", authMiddleware.VerifySession())
	me.GET("/access-token", h.GetAccessToken)
	me.DELETE("/session", h.Logout)

	return &testEnv{router: router, users: users, sessions: sessions, codec: codec, activity: activity}
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRegister_ReturnsTokenPair(t *testing.T) {
	env := setupEnv()

	w := postJSON(env.router, "/users", gin.H{"email": "a@x.com", "password": "pw123456"})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	refreshToken := w.Header().Get(HeaderRefreshToken)
	accessToken := w.Header().Get(HeaderAccessToken)
	if refreshToken == "" {
		t.Error("x-refresh-token header not set")
	}
	if accessToken == "" {
		t.Error("x-access-token header not set")
	}

	var body struct {
		User struct {
			ID    string `json:"_id"`
			Email string `json:"email"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body.User.Email != "a@x.com" {
		t.Errorf("user email = %q, want a@x.com", body.User.Email)
	}

	// One session opened for the new account
	if got := len(env.sessions.sessions[body.User.ID]); got != 1 {
		t.Errorf("session count = %d, want 1", got)
	}

	// Access token embeds the registered user's id
	userID, err := env.codec.Verify(accessToken)
	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}
	if userID != body.User.ID {
		t.Errorf("access token user id = %q, want %q", userID, body.User.ID)
	}
}

func TestRegister_Failures(t *testing.T) {
	env := setupEnv()

	if w := postJSON(env.router, "/users", gin.H{"email": "a@x.com"}); w.Code != http.StatusBadRequest {
		t.Errorf("missing password: status = %d, want 400", w.Code)
	}

	postJSON(env.router, "/users", gin.H{"email": "a@x.com", "password": "pw123456"})
	if w := postJSON(env.router, "/users", gin.H{"email": "a@x.com", "password": "pw123456"}); w.Code != http.StatusBadRequest {
		t.Errorf("duplicate email: status = %d, want 400", w.Code)
	}
}

func TestRegister_SessionPersistFailure(t *testing.T) {
	env := setupEnv()
	env.sessions.createErr = models.ErrSessionCreating

	// A token that was never persisted must not reach the client
	w := postJSON(env.router, "/users", gin.H{"email": "a@x.com", "password": "pw123456"})
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if w.Header().Get(HeaderRefreshToken) != "" || w.Header().Get(HeaderAccessToken) != "" {
		t.Error("token headers set despite failed session persist")
	}
}

func TestLogin_SecondDeviceKeepsFirstSession(t *testing.T) {
	env := setupEnv()

	postJSON(env.router, "/users", gin.H{"email": "a@x.com", "password": "pw123456"})

	w := postJSON(env.router, "/users/login", gin.H{"email": "a@x.com", "password": "pw123456"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200", w.Code)
	}

	u, _ := env.users.FindByCredentials(context.Background(), "a@x.com", "pw123456")
	if got := len(env.sessions.sessions[u.ID.Hex()]); got != 2 {
		t.Errorf("session count after second login = %d, want 2", got)
	}
}

func TestLogin_InvalidCredentials(t *testing.T) {
	env := setupEnv()
	postJSON(env.router, "/users", gin.H{"email": "a@x.com", "password": "pw123456"})

	if w := postJSON(env.router, "/users/login", gin.H{"email": "a@x.com", "password": "wrong"}); w.Code != http.StatusBadRequest {
		t.Errorf("wrong password: status = %d, want 400", w.Code)
	}
	if w := postJSON(env.router, "/users/login", gin.H{"email": "nobody@x.com", "password": "pw123456"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown email: status = %d, want 400", w.Code)
	}
}

// Register, then trade the refresh token for a fresh access token.
func TestAccessTokenFlow(t *testing.T) {
	env := setupEnv()

	reg := postJSON(env.router, "/users", gin.H{"email": "a@x.com", "password": "pw123456"})
	if reg.Code != http.StatusOK {
		t.Fatalf("registration failed: %d", reg.Code)
	}
	refreshToken := reg.Header().Get(HeaderRefreshToken)

	var body struct {
		User struct {
			ID string `json:"_id"`
		} `json:"user"`
	}
	if err := json.Unmarshal(reg.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid registration body: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/users/me/access-token", nil)
	req.Header.Set(middleware.HeaderRefreshToken, refreshToken)
	req.Header.Set(middleware.HeaderUserID, body.User.ID)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
	}

	accessToken := w.Header().Get(HeaderAccessToken)
	if accessToken == "" {
		t.Fatal("x-access-token header not set")
	}
	userID, err := env.codec.Verify(accessToken)
	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}
	if userID != body.User.ID {
		t.Errorf("access token user id = %q, want %q", userID, body.User.ID)
	}

	t.Run("bogus refresh token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/users/me/access-token", nil)
		req.Header.Set(middleware.HeaderRefreshToken, "not-a-real-token")
		req.Header.Set(middleware.HeaderUserID, body.User.ID)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		if w.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want 401", w.Code)
		}
	})
}

func TestLogout_RevokesPresentedSession(t *testing.T) {
	env := setupEnv()

	reg := postJSON(env.router, "/users", gin.H{"email": "a@x.com", "password": "pw123456"})
	refreshToken := reg.Header().Get(HeaderRefreshToken)

	var body struct {
		User struct {
			ID string `json:"_id"`
		} `json:"user"`
	}
	json.Unmarshal(reg.Body.Bytes(), &body)

	// Second device stays logged in
	login := postJSON(env.router, "/users/login", gin.H{"email": "a@x.com", "password": "pw123456"})
	otherToken := login.Header().Get(HeaderRefreshToken)

	req := httptest.NewRequest(http.MethodDelete, "/users/me/session", nil)
	req.Header.Set(middleware.HeaderRefreshToken, refreshToken)
	req.Header.Set(middleware.HeaderUserID, body.User.ID)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", w.Code)
	}

	remaining := env.sessions.sessions[body.User.ID]
	if len(remaining) != 1 || remaining[0].Token != otherToken {
		t.Errorf("remaining sessions = %v, want only the other device's", remaining)
	}
}

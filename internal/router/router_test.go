package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"authgate/internal/auth"
	"authgate/internal/config"
	"authgate/internal/handler"
	"authgate/internal/model"
	"authgate/internal/service"
)

// memUserRepo is an in-memory stand-in for the GORM user repository.
type memUserRepo struct {
	mu    sync.Mutex
	seq   uint
	users map[uint]*model.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{users: make(map[uint]*model.User)}
}

func (r *memUserRepo) Create(ctx context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	user.ID = r.seq
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *memUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memUserRepo) List(ctx context.Context) ([]model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var users []model.User
	for _, u := range r.users {
		users = append(users, *u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

func (r *memUserRepo) SetApproval(ctx context.Context, id uint, approved bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.IsApproved = approved
	return nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id uint, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

func (r *memUserRepo) Delete(ctx context.Context, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.users, id)
	return nil
}

// memAdminRepo is an in-memory stand-in for the GORM admin repository.
type memAdminRepo struct {
	mu     sync.Mutex
	seq    uint
	admins map[uint]*model.Admin
}

func newMemAdminRepo() *memAdminRepo {
	return &memAdminRepo{admins: make(map[uint]*model.Admin)}
}

func (r *memAdminRepo) FindByEmail(ctx context.Context, email string) (*model.Admin, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.Email == email {
			cp := *a
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *memAdminRepo) CreateIfAbsent(ctx context.Context, admin *model.Admin) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.admins {
		if a.Email == admin.Email {
			return nil
		}
	}
	r.seq++
	admin.ID = r.seq
	cp := *admin
	r.admins[admin.ID] = &cp
	return nil
}

type testApp struct {
	e          *echo.Echo
	jwtService *auth.JWTService
}

func newTestApp(t *testing.T, tokenTTL time.Duration) *testApp {
	t.Helper()

	cfg := &config.Config{
		JWTSecret: "test-secret",
		TokenTTL:  tokenTTL,
	}

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenTTL)
	resetStore := auth.NewResetTokenStore()
	cache := service.NewUserListCache(nil)

	userRepo := newMemUserRepo()
	adminRepo := newMemAdminRepo()

	authService := service.NewAuthService(userRepo, jwtService, resetStore, cache)
	adminService := service.NewAdminService(adminRepo, userRepo, jwtService, cache)

	e := echo.New()
	Register(e, cfg, handler.NewAuthHandler(authService), handler.NewAdminHandler(adminService))

	return &testApp{e: e, jwtService: jwtService}
}

func (app *testApp) request(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.e.ServeHTTP(rec, req)
	return rec
}

func (app *testApp) adminToken(t *testing.T) string {
	t.Helper()

	rec := app.request(t, http.MethodPost, "/api/auth/admin/setup", "", map[string]string{
		"email": "admin@x.com", "password": "adminpw",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = app.request(t, http.MethodPost, "/api/auth/admin/login", "", map[string]string{
		"email": "admin@x.com", "password": "adminpw",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func TestApprovalWorkflow(t *testing.T) {
	app := newTestApp(t, time.Hour)

	// Register alice.
	rec := app.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice", "email": "a@x.com", "password": "pw1234",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.False(t, created.IsApproved)
	assert.NotContains(t, rec.Body.String(), "password", "hash must never leave the server")

	// Login before approval is denied.
	rec = app.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "pw1234",
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// Admin approves.
	adminToken := app.adminToken(t)
	rec = app.request(t, http.MethodPost, "/api/auth/admin/approve", adminToken, map[string]uint{
		"userId": created.ID,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Login now succeeds and the token decodes to alice's id.
	rec = app.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "a@x.com", "password": "pw1234",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var login struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &login))
	claims, err := app.jwtService.ValidateToken(login.Token)
	require.NoError(t, err)
	assert.Equal(t, created.ID, claims.UserID)

	// Listing shows alice approved.
	rec = app.request(t, http.MethodGet, "/api/auth/admin/all-users", adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var users []model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &users))
	require.Len(t, users, 1)
	assert.Equal(t, "alice", users[0].Username)
	assert.True(t, users[0].IsApproved)
}

func TestAdminGuard(t *testing.T) {
	app := newTestApp(t, time.Hour)
	adminToken := app.adminToken(t)

	userRec := app.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "bob", "email": "b@x.com", "password": "pw1234",
	})
	require.Equal(t, http.StatusCreated, userRec.Code)

	var bob model.User
	require.NoError(t, json.Unmarshal(userRec.Body.Bytes(), &bob))

	userToken, err := app.jwtService.GenerateUserToken(bob.ID)
	require.NoError(t, err)

	expiredService := auth.NewJWTService("test-secret", -time.Minute)
	expiredToken, err := expiredService.GenerateAdminToken(1)
	require.NoError(t, err)

	forgedService := auth.NewJWTService("other-secret", time.Hour)
	forgedToken, err := forgedService.GenerateAdminToken(1)
	require.NoError(t, err)

	tests := []struct {
		name     string
		token    string
		expected int
	}{
		{"no token", "", http.StatusUnauthorized},
		{"garbage token", "not-a-jwt", http.StatusUnauthorized},
		{"expired admin token", expiredToken, http.StatusUnauthorized},
		{"forged admin token", forgedToken, http.StatusUnauthorized},
		{"user token", userToken, http.StatusForbidden},
		{"admin token", adminToken, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(t, http.MethodGet, "/api/auth/admin/all-users", tt.token, nil)
			assert.Equal(t, tt.expected, rec.Code)
		})
	}
}

func TestAdminMutationsOnMissingUser(t *testing.T) {
	app := newTestApp(t, time.Hour)
	adminToken := app.adminToken(t)

	rec := app.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "carol", "email": "c@x.com", "password": "pw1234",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var carol model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &carol))

	rec = app.request(t, http.MethodDelete, fmt.Sprintf("/api/auth/admin/delete-user/%d", carol.ID), adminToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Every mutation on the deleted id reports not-found.
	rec = app.request(t, http.MethodPost, "/api/auth/admin/approve", adminToken, map[string]uint{"userId": carol.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.request(t, http.MethodPost, "/api/auth/admin/disapprove", adminToken, map[string]uint{"userId": carol.ID})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.request(t, http.MethodDelete, fmt.Sprintf("/api/auth/admin/delete-user/%d", carol.ID), adminToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterConflictAndValidation(t *testing.T) {
	app := newTestApp(t, time.Hour)

	ok := map[string]string{"username": "dave", "email": "d@x.com", "password": "pw1234"}
	rec := app.request(t, http.MethodPost, "/api/auth/register", "", ok)
	require.Equal(t, http.StatusCreated, rec.Code)

	// Duplicate email.
	rec = app.request(t, http.MethodPost, "/api/auth/register", "", ok)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Missing fields.
	rec = app.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{"username": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Any non-empty password is accepted; only presence is validated.
	rec = app.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "fred", "email": "f@x.com", "password": "pw",
	})
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = app.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "gina", "email": "g@x.com", "password": "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPasswordResetOverHTTP(t *testing.T) {
	app := newTestApp(t, time.Hour)
	adminToken := app.adminToken(t)

	rec := app.request(t, http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "erin", "email": "e@x.com", "password": "pw1234",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var erin model.User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &erin))

	rec = app.request(t, http.MethodPost, "/api/auth/admin/approve", adminToken, map[string]uint{"userId": erin.ID})
	require.Equal(t, http.StatusOK, rec.Code)

	// Unknown email is 404.
	rec = app.request(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "nobody@x.com"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = app.request(t, http.MethodPost, "/api/auth/forgot-password", "", map[string]string{"email": "e@x.com"})
	require.Equal(t, http.StatusOK, rec.Code)

	var forgot struct {
		ResetToken string `json:"resetToken"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &forgot))
	require.NotEmpty(t, forgot.ResetToken)

	rec = app.request(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": forgot.ResetToken, "newPassword": "fresh123",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Token is single use.
	rec = app.request(t, http.MethodPost, "/api/auth/reset-password", "", map[string]string{
		"token": forgot.ResetToken, "newPassword": "fresh123",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Old password no longer works, the new one does.
	rec = app.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "e@x.com", "password": "pw1234",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = app.request(t, http.MethodPost, "/api/auth/login", "", map[string]string{
		"email": "e@x.com", "password": "fresh123",
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

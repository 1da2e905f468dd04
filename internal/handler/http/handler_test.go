package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"room-designer/internal/domain"
	"room-designer/internal/middleware"
	"room-designer/internal/repository"
	"room-designer/internal/repository/mocks"
	"room-designer/internal/service"
	"room-designer/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type memPersister struct {
	mu     sync.Mutex
	states map[uint]domain.DesignState
}

func (p *memPersister) Load(_ context.Context, userID uint) (domain.DesignState, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if st, ok := p.states[userID]; ok {
		return st, nil
	}
	return store.DefaultState(), nil
}

func (p *memPersister) Save(_ context.Context, userID uint, st domain.DesignState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.states[userID] = st
	return nil
}

func request(t *testing.T, r http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

// --- auth ---

func authRouter(t *testing.T, repo *mocks.UserRepository) *gin.Engine {
	t.Helper()
	svc, err := service.NewAuthService(repo, "secret", 24)
	require.NoError(t, err)
	h := NewAuthHandler(svc)
	r := gin.New()
	r.POST("/api/auth/register", h.Register)
	r.POST("/api/auth/login", h.Login)
	r.GET("/api/health", Health)
	return r
}

func TestHealth(t *testing.T) {
	w := request(t, authRouter(t, new(mocks.UserRepository)), http.MethodGet, "/api/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]interface{}
	decode(t, w, &body)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestRegister_Success(t *testing.T) {
	repo := new(mocks.UserRepository)
	repo.On("FindByEmail", mock.Anything, "ann@example.com").Return(nil, repository.ErrUserNotFound).Once()
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
		args.Get(1).(*domain.User).ID = 3
	}).Return(nil).Once()

	w := request(t, authRouter(t, repo), http.MethodPost, "/api/auth/register",
		gin.H{"name": "Ann", "email": "ann@example.com", "password": "pw123456"})

	require.Equal(t, http.StatusOK, w.Code)
	var resp AuthResponse
	decode(t, w, &resp)
	assert.Equal(t, uint(3), resp.ID)
	assert.Equal(t, "Ann", resp.Name)
	assert.Equal(t, "ann@example.com", resp.Email)
	assert.Equal(t, domain.RoleUser, resp.Role)
	assert.NotEmpty(t, resp.Token)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestRegister_Errors(t *testing.T) {
	t.Run("missing fields", func(t *testing.T) {
		w := request(t, authRouter(t, new(mocks.UserRepository)), http.MethodPost, "/api/auth/register",
			gin.H{"email": "ann@example.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"All fields are required"}`, w.Body.String())
	})

	t.Run("email taken", func(t *testing.T) {
		repo := new(mocks.UserRepository)
		repo.On("FindByEmail", mock.Anything, "ann@example.com").Return(&domain.User{ID: 1}, nil).Once()
		w := request(t, authRouter(t, repo), http.MethodPost, "/api/auth/register",
			gin.H{"name": "Ann", "email": "ann@example.com", "password": "pw"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.JSONEq(t, `{"error":"Email already registered"}`, w.Body.String())
	})

	t.Run("database down", func(t *testing.T) {
		repo := new(mocks.UserRepository)
		repo.On("FindByEmail", mock.Anything, "ann@example.com").Return(nil, errors.New("db down")).Once()
		w := request(t, authRouter(t, repo), http.MethodPost, "/api/auth/register",
			gin.H{"name": "Ann", "email": "ann@example.com", "password": "pw"})
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.JSONEq(t, `{"error":"Registration failed"}`, w.Body.String())
	})
}

func TestLogin(t *testing.T) {
	repo := new(mocks.UserRepository)
	// Register once to get a real bcrypt hash.
	var saved domain.User
	repo.On("FindByEmail", mock.Anything, "bob@example.com").Return(nil, repository.ErrUserNotFound).Once()
	repo.On("Save", mock.Anything, mock.AnythingOfType("*domain.User")).Run(func(args mock.Arguments) {
		u := args.Get(1).(*domain.User)
		u.ID = 9
		saved = *u
	}).Return(nil).Once()
	r := authRouter(t, repo)
	require.Equal(t, http.StatusOK, request(t, r, http.MethodPost, "/api/auth/register",
		gin.H{"name": "Bob", "email": "bob@example.com", "password": "hunter22"}).Code)

	repo.On("FindByEmail", mock.Anything, "bob@example.com").Return(&saved, nil)
	repo.On("FindByEmail", mock.Anything, "nobody@example.com").Return(nil, repository.ErrUserNotFound)

	w := request(t, r, http.MethodPost, "/api/auth/login", gin.H{"email": "bob@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, w.Code)
	var resp AuthResponse
	decode(t, w, &resp)
	assert.Equal(t, uint(9), resp.ID)
	assert.NotEmpty(t, resp.Token)

	w = request(t, r, http.MethodPost, "/api/auth/login", gin.H{"email": "bob@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"Invalid credentials"}`, w.Body.String())

	w = request(t, r, http.MethodPost, "/api/auth/login", gin.H{"email": "nobody@example.com", "password": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = request(t, r, http.MethodPost, "/api/auth/login", gin.H{"email": "bob@example.com"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Email and password are required"}`, w.Body.String())
}

// --- designer ---

// asUser stands in for the Auth middleware.
func asUser(userID uint, role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != 0 {
			c.Set(middleware.ContextUserID, userID)
			c.Set(middleware.ContextRole, role)
		}
		c.Next()
	}
}

func designerRouter(userID uint, role string) *gin.Engine {
	designer := service.NewDesignerService(&memPersister{states: make(map[uint]domain.DesignState)}, nil, nil, nil, nil)
	r := gin.New()
	g := r.Group("/api/designer", asUser(userID, role))
	NewDesignerHandler(designer).Register(g, middleware.AdminOnly())
	return r
}

func TestDesigner_FurnitureLifecycle(t *testing.T) {
	r := designerRouter(1, domain.RoleUser)

	w := request(t, r, http.MethodPost, "/api/designer/furniture", gin.H{"type": "chair", "position": []float64{1, 0, 2}})
	require.Equal(t, http.StatusCreated, w.Code)
	var item domain.FurnitureItem
	decode(t, w, &item)
	assert.NotEmpty(t, item.ID)
	assert.Equal(t, "#ffffff", item.Color)

	w = request(t, r, http.MethodPatch, "/api/designer/furniture/"+item.ID, gin.H{"color": "#FF0000"})
	require.Equal(t, http.StatusOK, w.Code)
	var patched struct {
		Changed bool                 `json:"changed"`
		Item    domain.FurnitureItem `json:"item"`
	}
	decode(t, w, &patched)
	assert.True(t, patched.Changed)
	assert.Equal(t, "#ff0000", patched.Item.Color)

	w = request(t, r, http.MethodGet, "/api/designer/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var sv service.StateView
	decode(t, w, &sv)
	require.Len(t, sv.State.Furniture, 1)

	w = request(t, r, http.MethodDelete, "/api/designer/furniture/"+item.ID, nil)
	assert.JSONEq(t, `{"changed":true}`, w.Body.String())
}

func TestDesigner_UnknownIDsAreNoOps(t *testing.T) {
	r := designerRouter(1, domain.RoleUser)

	for _, tc := range []struct{ method, path string }{
		{http.MethodPatch, "/api/designer/furniture/missing"},
		{http.MethodDelete, "/api/designer/furniture/missing"},
		{http.MethodPatch, "/api/designer/designs/missing"},
		{http.MethodPost, "/api/designer/designs/missing/duplicate"},
		{http.MethodPost, "/api/designer/designs/missing/load"},
		{http.MethodPost, "/api/designer/designs/missing/metadata"},
		{http.MethodDelete, "/api/designer/designs/missing"},
		{http.MethodPost, "/api/designer/templates/missing/apply"},
	} {
		w := request(t, r, tc.method, tc.path, gin.H{"metadata": map[string]string{"k": "v"}})
		assert.Equal(t, http.StatusOK, w.Code, tc.path)
		assert.JSONEq(t, `{"changed":false}`, w.Body.String(), tc.path)
	}
}

func TestDesigner_SaveDesign(t *testing.T) {
	r := designerRouter(1, domain.RoleUser)

	w := request(t, r, http.MethodPost, "/api/designer/designs", gin.H{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(t, r, http.MethodPost, "/api/designer/designs", gin.H{"name": "Living Room", "metadata": map[string]string{"style": "modern"}})
	require.Equal(t, http.StatusCreated, w.Code)
	var d domain.Design
	decode(t, w, &d)
	assert.Equal(t, "Living Room", d.Name)
	assert.Equal(t, "modern", d.Metadata["style"])

	w = request(t, r, http.MethodPost, "/api/designer/designs/"+d.ID+"/duplicate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Living Room (Copy)")
}

func TestDesigner_InvalidBodyAndRoom(t *testing.T) {
	r := designerRouter(1, domain.RoleUser)

	req := httptest.NewRequest(http.MethodPut, "/api/designer/room", bytes.NewBufferString("{nope"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid request body"}`, w.Body.String())

	w = request(t, r, http.MethodPut, "/api/designer/room", gin.H{"width": 0, "length": 5, "height": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(t, r, http.MethodPut, "/api/designer/room", gin.H{"width": 1e12, "length": 5, "height": 3})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = request(t, r, http.MethodPut, "/api/designer/room", gin.H{"width": 6, "length": 8, "height": 3, "wallColor": "#ABCDEF"})
	require.Equal(t, http.StatusOK, w.Code)
	var room domain.RoomSettings
	decode(t, w, &room)
	assert.Equal(t, "#abcdef", room.WallColor)
}

func TestDesigner_TemplatesAdminOnly(t *testing.T) {
	body := gin.H{"name": "Studio", "settings": gin.H{"width": 5, "length": 6, "height": 2.7}}

	w := request(t, designerRouter(1, domain.RoleUser), http.MethodPut, "/api/designer/templates", body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	r := designerRouter(1, domain.RoleAdmin)
	w = request(t, r, http.MethodPut, "/api/designer/templates", body)
	require.Equal(t, http.StatusOK, w.Code)
	var tpl domain.RoomTemplate
	decode(t, w, &tpl)
	assert.NotEmpty(t, tpl.ID)

	w = request(t, r, http.MethodGet, "/api/designer/templates", nil)
	assert.Contains(t, w.Body.String(), "Studio")

	w = request(t, r, http.MethodPost, "/api/designer/templates/"+tpl.ID+"/apply", nil)
	assert.JSONEq(t, `{"changed":true}`, w.Body.String())
}

func TestDesigner_Catalog(t *testing.T) {
	w := request(t, designerRouter(1, domain.RoleUser), http.MethodGet, "/api/designer/catalog?category=storage", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp CatalogResponse
	decode(t, w, &resp)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "sideboard", resp.Items[0].Type)
	assert.NotEmpty(t, resp.Categories)
}

func TestDesigner_RequiresUser(t *testing.T) {
	w := request(t, designerRouter(0, ""), http.MethodGet, "/api/designer/state", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{service.ErrInvalidInput, http.StatusBadRequest},
		{service.ErrInvalidViewEvent, http.StatusBadRequest},
		{service.ErrAuthenticationFailed, http.StatusUnauthorized},
		{service.ErrRegistrationFailed, http.StatusBadRequest},
		{service.ErrForbidden, http.StatusForbidden},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		HandleServiceError(c, tt.err)
		assert.Equal(t, tt.code, w.Code, tt.err.Error())
	}
}

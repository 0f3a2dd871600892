package handlers_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/userfolio/webapp/config"
	"github.com/userfolio/webapp/internal/handlers"
	"github.com/userfolio/webapp/internal/services"
	"github.com/userfolio/webapp/internal/storage"
	"github.com/userfolio/webapp/internal/store"
	"github.com/userfolio/webapp/internal/web"
	"github.com/userfolio/webapp/types"
	"go.uber.org/zap"
)

// --- in-memory repositories ---

type memUserRepo struct {
	nextID int
	byName map[string]types.User
	byID   map[int]types.User
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{nextID: 1, byName: map[string]types.User{}, byID: map[int]types.User{}}
}

func (m *memUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := m.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memUserRepo) GetByUsername(_ context.Context, username string) (types.User, error) {
	user, ok := m.byName[username]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	if _, exists := m.byName[user.Username]; exists {
		return types.User{}, store.ErrDuplicateUsername
	}
	user.ID = m.nextID
	m.nextID++
	m.byName[user.Username] = user
	m.byID[user.ID] = user
	return user, nil
}

type memSessionRepo struct {
	sessions map[string]types.Session
}

func newMemSessionRepo() *memSessionRepo {
	return &memSessionRepo{sessions: map[string]types.Session{}}
}

func (m *memSessionRepo) Create(_ context.Context, session types.Session) (types.Session, error) {
	session.CreatedAt = time.Now()
	m.sessions[session.ID] = session
	return session, nil
}

func (m *memSessionRepo) GetByID(_ context.Context, id string) (types.Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return types.Session{}, store.ErrNotFound
	}
	return session, nil
}

func (m *memSessionRepo) Delete(_ context.Context, id string) error {
	if _, ok := m.sessions[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.sessions, id)
	return nil
}

func (m *memSessionRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var removed int64
	for id, session := range m.sessions {
		if session.Expired(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// --- test application ---

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()

	backend, err := storage.NewLocalStore(config.LocalConfig{Dir: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, backend.Prepare(context.Background()))

	users := services.NewUserService(newMemUserRepo())
	sessions, err := services.NewSessionService(newMemSessionRepo(), "test-secret", time.Hour)
	require.NoError(t, err)
	uploads := services.NewUploadService(storage.NewStorage(backend), 2<<20)

	renderer, err := web.NewRenderer()
	require.NoError(t, err)
	logger := zap.NewNop()

	router := chi.NewRouter()
	router.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	})
	handlers.AuthRouter(router, handlers.NewAuthHandler(users, sessions, uploads, renderer, logger))
	handlers.ProfileRouter(router, handlers.NewProfileHandler(users, uploads, renderer, logger), handlers.RequireSession(sessions))
	return router
}

type registration struct {
	name     string
	birthday string
	address  string
	username string
	password string

	imageName string
	imageData []byte
}

func defaultRegistration() registration {
	return registration{
		name:     "Alice Example",
		birthday: "2000-05-20",
		address:  "1 Main St",
		username: "alice",
		password: "s3cret-pass",
	}
}

func registerRequest(t *testing.T, reg registration) *http.Request {
	t.Helper()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	fields := map[string]string{
		"name":     reg.name,
		"birthday": reg.birthday,
		"address":  reg.address,
		"username": reg.username,
		"password": reg.password,
	}
	for field, value := range fields {
		require.NoError(t, writer.WriteField(field, value))
	}
	if reg.imageName != "" {
		part, err := writer.CreateFormFile("image", reg.imageName)
		require.NoError(t, err)
		_, err = part.Write(reg.imageData)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/register", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func loginRequest(username, password string) *http.Request {
	form := url.Values{"username": {username}, "password": {password}}
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func do(router *chi.Mux, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// --- tests ---

func TestRootRedirectsToLogin(t *testing.T) {
	router := newTestRouter(t)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestUserRequiresSession(t *testing.T) {
	router := newTestRouter(t)

	rec := do(router, httptest.NewRequest(http.MethodGet, "/user", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRegisterLoginProfileFlow(t *testing.T) {
	router := newTestRouter(t)

	reg := defaultRegistration()
	reg.imageName = "photo.PNG"
	reg.imageData = []byte("fake png bytes")

	rec := do(router, registerRequest(t, reg))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login?registered=1", rec.Header().Get("Location"))

	// The login page shows the registration prompt.
	rec = do(router, httptest.NewRequest(http.MethodGet, "/login?registered=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Account created")

	rec = do(router, loginRequest("alice", "s3cret-pass"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/user", rec.Header().Get("Location"))

	cookies := rec.Result().Cookies()
	require.NotEmpty(t, cookies)
	sessionCookie := cookies[0]
	assert.Equal(t, handlers.SessionCookieName, sessionCookie.Name)
	assert.True(t, sessionCookie.HttpOnly)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(sessionCookie)
	rec = do(router, req)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Alice Example")
	assert.Contains(t, body, "alice")
	expectedAge := types.User{Birthday: time.Date(2000, time.May, 20, 0, 0, 0, 0, time.UTC)}.AgeOn(time.Now())
	assert.Contains(t, body, fmt.Sprintf("Age: %d", expectedAge))
	assert.Contains(t, body, "/uploads/")

	// The stored photo is served back through the storage backend.
	imagePath := extractImagePath(t, body)
	req = httptest.NewRequest(http.MethodGet, imagePath, nil)
	req.AddCookie(sessionCookie)
	rec = do(router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	data, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, []byte("fake png bytes"), data)

	// Logout clears the session; the profile is gated again.
	req = httptest.NewRequest(http.MethodGet, "/logout", nil)
	req.AddCookie(sessionCookie)
	rec = do(router, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(sessionCookie)
	rec = do(router, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRegisterWithoutImage(t *testing.T) {
	router := newTestRouter(t)

	rec := do(router, registerRequest(t, defaultRegistration()))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = do(router, loginRequest("alice", "s3cret-pass"))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(rec.Result().Cookies()[0])
	rec = do(router, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "/uploads/")
}

func TestRegisterDuplicateUsername(t *testing.T) {
	router := newTestRouter(t)

	rec := do(router, registerRequest(t, defaultRegistration()))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = do(router, registerRequest(t, defaultRegistration()))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), "already taken")
	// Submitted input except the password is preserved.
	assert.Contains(t, rec.Body.String(), "Alice Example")
	assert.NotContains(t, rec.Body.String(), "s3cret-pass")
}

func TestRegisterInvalidDate(t *testing.T) {
	router := newTestRouter(t)

	reg := defaultRegistration()
	reg.birthday = "20/05/2000"
	rec := do(router, registerRequest(t, reg))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "YYYY-MM-DD")
}

func TestRegisterRejectsBadExtension(t *testing.T) {
	router := newTestRouter(t)

	reg := defaultRegistration()
	reg.imageName = "photo.exe"
	reg.imageData = []byte("not an image")
	rec := do(router, registerRequest(t, reg))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "rejected")

	// The rejected registration created no account.
	rec = do(router, loginRequest("alice", "s3cret-pass"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegisterRejectsOversizedUpload(t *testing.T) {
	router := newTestRouter(t)

	reg := defaultRegistration()
	reg.imageName = "huge.png"
	reg.imageData = make([]byte, 3<<20)
	rec := do(router, registerRequest(t, reg))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	router := newTestRouter(t)

	rec := do(router, registerRequest(t, defaultRegistration()))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	wrongPassword := do(router, loginRequest("alice", "wrong-pass"))
	unknownUser := do(router, loginRequest("nobody", "s3cret-pass"))

	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, http.StatusUnauthorized, unknownUser.Code)
	assert.Contains(t, wrongPassword.Body.String(), "Invalid username or password.")
	assert.Contains(t, unknownUser.Body.String(), "Invalid username or password.")
}

func TestForgedSessionCookieRejected(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/user", nil)
	req.AddCookie(&http.Cookie{Name: handlers.SessionCookieName, Value: "forged-value"})
	rec := do(router, req)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func extractImagePath(t *testing.T, body string) string {
	t.Helper()
	start := strings.Index(body, "/uploads/")
	require.GreaterOrEqual(t, start, 0)
	end := strings.IndexAny(body[start:], `"'`)
	require.Greater(t, end, 0)
	return body[start : start+end]
}

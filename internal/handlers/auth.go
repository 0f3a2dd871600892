package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/userfolio/webapp/internal/services"
	"github.com/userfolio/webapp/internal/store"
	"github.com/userfolio/webapp/internal/web"
	"go.uber.org/zap"
)

const maxMultipartMemory = 1 << 20
const formFieldImage = "image"

// AuthHandler serves the registration, login and logout form flows.
type AuthHandler struct {
	users    *services.UserService
	sessions *services.SessionService
	uploads  *services.UploadService
	renderer *web.Renderer
	logger   *zap.Logger
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(
	users *services.UserService,
	sessions *services.SessionService,
	uploads *services.UploadService,
	renderer *web.Renderer,
	logger *zap.Logger,
) *AuthHandler {
	return &AuthHandler{
		users:    users,
		sessions: sessions,
		uploads:  uploads,
		renderer: renderer,
		logger:   logger,
	}
}

// AuthRouter registers the auth routes on the given router.
func AuthRouter(r chi.Router, handler *AuthHandler) {
	r.Get("/register", handler.ShowRegister)
	r.Post("/register", handler.Register)
	r.Get("/login", handler.ShowLogin)
	r.Post("/login", handler.Login)
	r.Get("/logout", handler.Logout)
}

// registerPage is the template data for the registration form. The
// password is never echoed back.
type registerPage struct {
	Error    string
	Name     string
	Birthday string
	Address  string
	Username string
}

type loginPage struct {
	Error    string
	Prompt   string
	Username string
}

// ShowRegister renders an empty registration form.
func (h *AuthHandler) ShowRegister(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "register.html", registerPage{})
}

// Register processes a registration submission. An invalid or oversized
// photo rejects the whole registration with a visible error rather than
// silently dropping the file. On success the user is sent to the login
// page with a prompt; there is no auto-login.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxBytes())
	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		h.render(w, http.StatusRequestEntityTooLarge, "register.html", registerPage{
			Error: "The submitted form was invalid or too large (2 MiB limit).",
		})
		return
	}

	page := registerPage{
		Name:     r.FormValue("name"),
		Birthday: r.FormValue("birthday"),
		Address:  r.FormValue("address"),
		Username: r.FormValue("username"),
	}

	imageFilename, err := h.storeImage(r)
	if err != nil {
		if errors.Is(err, services.ErrUploadRejected) {
			page.Error = "The photo was rejected: only png, jpg, jpeg or gif files up to 2 MiB are accepted."
			h.render(w, http.StatusBadRequest, "register.html", page)
			return
		}
		h.logger.Error("store upload", zap.Error(err))
		h.renderFailure(w)
		return
	}

	_, err = h.users.Register(r.Context(), services.RegisterInput{
		Name:          page.Name,
		Birthday:      page.Birthday,
		Address:       page.Address,
		Username:      page.Username,
		Password:      r.FormValue("password"),
		ImageFilename: imageFilename,
	})
	if err != nil {
		if imageFilename != "" {
			if removeErr := h.uploads.Remove(r.Context(), imageFilename); removeErr != nil {
				h.logger.Warn("remove orphaned upload", zap.String("key", imageFilename), zap.Error(removeErr))
			}
		}
		switch {
		case errors.Is(err, services.ErrMissingFields):
			page.Error = "Name, username and password are required."
			h.render(w, http.StatusBadRequest, "register.html", page)
		case errors.Is(err, services.ErrInvalidDate):
			page.Error = "Please enter the birthday as YYYY-MM-DD."
			h.render(w, http.StatusBadRequest, "register.html", page)
		case errors.Is(err, store.ErrDuplicateUsername):
			page.Error = "That username is already taken."
			h.render(w, http.StatusConflict, "register.html", page)
		default:
			h.logger.Error("register user", zap.Error(err))
			h.renderFailure(w)
		}
		return
	}

	http.Redirect(w, r, "/login?registered=1", http.StatusSeeOther)
}

// ShowLogin renders the login form, with a prompt after registration.
func (h *AuthHandler) ShowLogin(w http.ResponseWriter, r *http.Request) {
	page := loginPage{}
	if r.URL.Query().Get("registered") == "1" {
		page.Prompt = "Account created. Please log in."
	}
	h.render(w, http.StatusOK, "login.html", page)
}

// Login verifies credentials and establishes a session. Unknown username
// and wrong password produce the same message.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.render(w, http.StatusBadRequest, "login.html", loginPage{Error: "Invalid form submission."})
		return
	}

	username := r.FormValue("username")
	user, err := h.users.Authenticate(r.Context(), username, r.FormValue("password"))
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			h.render(w, http.StatusUnauthorized, "login.html", loginPage{
				Error:    "Invalid username or password.",
				Username: username,
			})
			return
		}
		h.logger.Error("authenticate", zap.Error(err))
		h.renderFailure(w)
		return
	}

	cookieValue, err := h.sessions.Issue(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("issue session", zap.Error(err))
		h.renderFailure(w)
		return
	}

	setSessionCookie(w, cookieValue, time.Now().Add(h.sessions.TTL()))
	http.Redirect(w, r, "/user", http.StatusSeeOther)
}

// Logout revokes the session and clears the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.sessions.Revoke(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("revoke session", zap.Error(err))
		}
	}
	clearSessionCookie(w)
	redirectToLogin(w, r)
}

// storeImage validates and stores the optional photo. It returns the
// storage key, or empty when no file was submitted.
func (h *AuthHandler) storeImage(r *http.Request) (string, error) {
	if r.MultipartForm == nil || len(r.MultipartForm.File[formFieldImage]) == 0 {
		return "", nil
	}

	fileHeader := r.MultipartForm.File[formFieldImage][0]
	if fileHeader.Filename == "" {
		return "", nil
	}

	file, err := fileHeader.Open()
	if err != nil {
		return "", err
	}
	defer file.Close()

	return h.uploads.Store(r.Context(), fileHeader.Filename, file)
}

func (h *AuthHandler) render(w http.ResponseWriter, status int, page string, data any) {
	if err := h.renderer.Render(w, status, page, data); err != nil {
		h.logger.Error("render page", zap.String("page", page), zap.Error(err))
	}
}

func (h *AuthHandler) renderFailure(w http.ResponseWriter) {
	h.render(w, http.StatusInternalServerError, "error.html", nil)
}

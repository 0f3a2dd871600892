package handlers

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/userfolio/webapp/internal/services"
	"github.com/userfolio/webapp/internal/store"
	"github.com/userfolio/webapp/internal/web"
	"github.com/userfolio/webapp/types"
	"go.uber.org/zap"
)

// ProfileHandler serves the authenticated profile page and stored photos.
type ProfileHandler struct {
	users    *services.UserService
	uploads  *services.UploadService
	renderer *web.Renderer
	logger   *zap.Logger
}

// NewProfileHandler constructs a ProfileHandler.
func NewProfileHandler(
	users *services.UserService,
	uploads *services.UploadService,
	renderer *web.Renderer,
	logger *zap.Logger,
) *ProfileHandler {
	return &ProfileHandler{
		users:    users,
		uploads:  uploads,
		renderer: renderer,
		logger:   logger,
	}
}

// ProfileRouter registers the session-gated routes.
func ProfileRouter(r chi.Router, handler *ProfileHandler, sessionMiddleware func(http.Handler) http.Handler) {
	r.With(sessionMiddleware).Get("/user", handler.Profile)
	r.With(sessionMiddleware).Get("/uploads/{filename}", handler.Image)
}

type profilePage struct {
	User types.User
	Age  int
}

// Profile renders the logged-in user's data with the computed age.
func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		redirectToLogin(w, r)
		return
	}

	user, err := h.users.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Account gone but session still alive; force a fresh login.
			clearSessionCookie(w)
			redirectToLogin(w, r)
			return
		}
		h.logger.Error("load user", zap.Error(err))
		h.renderFailure(w)
		return
	}

	h.render(w, http.StatusOK, "profile.html", profilePage{
		User: user,
		Age:  user.AgeOn(time.Now()),
	})
}

// Image streams a stored profile photo through the storage backend.
func (h *ProfileHandler) Image(w http.ResponseWriter, r *http.Request) {
	filename := chi.URLParam(r, "filename")

	reader, err := h.uploads.Open(r.Context(), filename)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer reader.Close()

	if contentType := mime.TypeByExtension(filepath.Ext(filename)); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	if _, err := io.Copy(w, reader); err != nil {
		h.logger.Warn("stream photo", zap.String("filename", filename), zap.Error(err))
	}
}

func (h *ProfileHandler) render(w http.ResponseWriter, status int, page string, data any) {
	if err := h.renderer.Render(w, status, page, data); err != nil {
		h.logger.Error("render page", zap.String("page", page), zap.Error(err))
	}
}

func (h *ProfileHandler) renderFailure(w http.ResponseWriter) {
	h.render(w, http.StatusInternalServerError, "error.html", nil)
}

package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"gwi.com/aiclone/internal/auth"
	"gwi.com/aiclone/internal/common"
	"gwi.com/aiclone/internal/core"
)

const (
	apiVersion  = "2.0.0"
	uploadsPath = "/uploads"
)

// APIHandler serves every HTTP endpoint on top of the core services.
type APIHandler struct {
	chat    *core.ChatService
	media   *core.MediaService
	clones  *core.CloneService
	users   *core.UserService
	profile *core.ProfileService
	logger  logrus.FieldLogger
	now     func() time.Time
}

type Services struct {
	Chat    *core.ChatService
	Media   *core.MediaService
	Clones  *core.CloneService
	Users   *core.UserService
	Profile *core.ProfileService
}

func NewAPIHandler(s Services, logger logrus.FieldLogger) *APIHandler {
	return &APIHandler{
		chat:    s.Chat,
		media:   s.Media,
		clones:  s.Clones,
		users:   s.Users,
		profile: s.Profile,
		logger:  logger,
		now:     time.Now,
	}
}

type contextKey string

const identityKey contextKey = "identity"

func withIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func identityFrom(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey).(*auth.Identity)
	return id
}

// JWTAuthMiddleware requires a valid bearer access token and stores its identity in the request context.
func (h *APIHandler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		id, err := h.users.Identify(token)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(withIdentity(r.Context(), id)))
	})
}

// RequireSuperadmin must run after JWTAuthMiddleware.
func (h *APIHandler) RequireSuperadmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := identityFrom(r.Context())
		if id == nil || !auth.IsSuperadmin(id.Role) {
			h.writeError(w, r, common.Forbidden("Superadmin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrFileTooLarge), errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, common.ErrValidation), errors.Is(err, common.ErrAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrUnauthorized), errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders err as {"detail": ...}. Internal errors are logged and not echoed.
func (h *APIHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := common.Message(err)
	switch {
	case status == http.StatusRequestEntityTooLarge && !errors.Is(err, core.ErrFileTooLarge):
		detail = "File too large"
	case status == http.StatusUnauthorized && errors.Is(err, common.ErrTokenExpired):
		detail = "Token has expired"
	case status == http.StatusUnauthorized && errors.Is(err, common.ErrInvalidToken):
		detail = "Invalid token"
	case status == http.StatusInternalServerError:
		h.logger.WithError(err).WithField("path", r.URL.Path).Error("request failed")
		detail = "Internal server error"
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", "Bearer")
	}
	writeJSON(w, status, map[string]string{"detail": detail})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return common.Validation("Invalid request body: " + err.Error())
	}
	return nil
}

func (h *APIHandler) timestamp() string {
	return h.now().Format(time.RFC3339)
}

func (h *APIHandler) HealthHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"message":   "AIClone API is running",
		"timestamp": h.timestamp(),
	})
}

func (h *APIHandler) RootHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "AIClone API",
		"version": apiVersion,
		"endpoints": map[string]string{
			"chat":            "/api/chat",
			"voice_chat":      "/api/ai/chat",
			"upload_image":    "/api/upload/image",
			"upload_document": "/api/upload/document",
			"history":         "/api/history",
			"learned":         "/api/learned",
			"clones":          "/api/clones",
			"auth":            "/api/auth",
			"users":           "/api/users",
			"profile":         "/api/ai-profile",
			"health":          "/health",
			"metrics":         "/metrics",
		},
	})
}

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"gwi.com/aiclone/internal/core"
	"gwi.com/aiclone/internal/store"
)

type CreateUserResponse struct {
	*store.User
	EmailSent bool   `json:"email_sent"`
	Message   string `json:"message"`
}

func (h *APIHandler) CreateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req core.UserInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, sent, err := h.users.CreateUser(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	msg := "User created successfully"
	if sent {
		msg += ". Confirmation email sent to " + u.Email
	}
	writeJSON(w, http.StatusCreated, CreateUserResponse{User: u, EmailSent: sent, Message: msg})
}

func (h *APIHandler) ListUsersHandler(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *APIHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.GetUser(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *APIHandler) UpdateUserHandler(w http.ResponseWriter, r *http.Request) {
	var req core.UserInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	u, err := h.users.UpdateUser(r.Context(), chi.URLParam(r, "userID"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *APIHandler) DeleteUserHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.users.DeleteUser(r.Context(), chi.URLParam(r, "userID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) SetUserRoleHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.SetRole(r.Context(), chi.URLParam(r, "userID"), r.URL.Query().Get("role"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"user_id": u.ID, "new_role": u.Role})
}

func (h *APIHandler) ToggleUserStatusHandler(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.ToggleStatus(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	state := "locked"
	if u.IsActive {
		state = "activated"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        u.ID,
		"username":  u.Username,
		"is_active": u.IsActive,
		"message":   "User " + state + " successfully",
	})
}

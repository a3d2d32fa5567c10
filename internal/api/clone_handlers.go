package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"gwi.com/aiclone/internal/core"
)

func (h *APIHandler) CreateCloneHandler(w http.ResponseWriter, r *http.Request) {
	var req core.CloneInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.clones.Create(r.Context(), req, identityFrom(r.Context()).Username)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *APIHandler) ListClonesHandler(w http.ResponseWriter, r *http.Request) {
	clones, err := h.clones.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, clones)
}

func (h *APIHandler) GetCloneHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.clones.Get(r.Context(), chi.URLParam(r, "cloneID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *APIHandler) GetCloneByNameHandler(w http.ResponseWriter, r *http.Request) {
	c, err := h.clones.GetByName(r.Context(), chi.URLParam(r, "name"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *APIHandler) UpdateCloneHandler(w http.ResponseWriter, r *http.Request) {
	var req core.CloneInput
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	c, err := h.clones.Update(r.Context(), chi.URLParam(r, "cloneID"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *APIHandler) DeleteCloneHandler(w http.ResponseWriter, r *http.Request) {
	name, err := h.clones.Delete(r.Context(), chi.URLParam(r, "cloneID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Clone '" + name + "' deleted successfully"})
}

type MemoryRequest struct {
	UserMessage   string `json:"user_message"`
	CloneResponse string `json:"clone_response"`
}

func (h *APIHandler) AddMemoryHandler(w http.ResponseWriter, r *http.Request) {
	var req MemoryRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.clones.AddMemory(r.Context(), chi.URLParam(r, "cloneID"), req.UserMessage, req.CloneResponse)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Memory added successfully", "memories_count": n})
}

func (h *APIHandler) CloneStatsHandler(w http.ResponseWriter, r *http.Request) {
	stats, err := h.clones.Stats(r.Context(), chi.URLParam(r, "cloneID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

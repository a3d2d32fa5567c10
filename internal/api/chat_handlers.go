package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gwi.com/aiclone/internal/common"
	"gwi.com/aiclone/internal/core"
)

type ChatRequest struct {
	Text      string `json:"text"`
	UserName  string `json:"user_name"`
	SessionID string `json:"session_id"`
}

type ChatResponse struct {
	UserMessage string `json:"user_message"`
	AIResponse  string `json:"ai_response"`
	Timestamp   string `json:"timestamp"`
	Source      string `json:"source,omitempty"`
	SessionID   string `json:"session_id,omitempty"`
}

func (h *APIHandler) ChatHandler(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		h.writeError(w, r, common.Validation("Message text is required"))
		return
	}

	reply := h.chat.Chat(r.Context(), req.Text, req.UserName, req.SessionID)
	writeJSON(w, http.StatusOK, ChatResponse{
		UserMessage: reply.UserMessage,
		AIResponse:  reply.AIResponse,
		Timestamp:   reply.Timestamp.Format(time.RFC3339),
		Source:      string(reply.Source),
		SessionID:   reply.SessionID,
	})
}

type VoiceChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

func (h *APIHandler) VoiceChatHandler(w http.ResponseWriter, r *http.Request) {
	var req VoiceChatRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"response":  h.chat.VoiceChat(r.Context(), req.Message, req.SessionID),
		"timestamp": h.timestamp(),
	})
}

// queryInt reads a positive integer query parameter, falling back to def.
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, common.Validation(fmt.Sprintf("Invalid %s parameter", key))
	}
	return n, nil
}

func (h *APIHandler) HistoryHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", core.DefaultHistoryLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.chat.History(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": entries})
}

func (h *APIHandler) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	n, err := h.chat.ClearHistory(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.WithField("entries", n).Info("history cleared")
	writeJSON(w, http.StatusOK, map[string]string{"message": "History cleared"})
}

func (h *APIHandler) ClearCacheHandler(w http.ResponseWriter, _ *http.Request) {
	size := h.chat.ClearCache()
	writeJSON(w, http.StatusOK, map[string]any{"message": "Cache cleared", "cache_size": size})
}

func (h *APIHandler) ListLearnedHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", core.DefaultLearnedLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := h.chat.ListLearned(r.Context(), limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(entries), "learned_qa": entries})
}

func (h *APIHandler) DeleteLearnedHandler(w http.ResponseWriter, r *http.Request) {
	// chi matches on RawPath when set, so only then is the param still escaped
	question := chi.URLParam(r, "question")
	if r.URL.RawPath != "" {
		var err error
		if question, err = url.PathUnescape(question); err != nil {
			h.writeError(w, r, common.Validation("Invalid question"))
			return
		}
	}
	if err := h.chat.DeleteLearned(r.Context(), question); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Learned Q&A deleted"})
}

// readUpload pulls the multipart "file" field, reading at most one byte past
// the limit so oversize files are detected without buffering them whole.
func (h *APIHandler) readUpload(w http.ResponseWriter, r *http.Request) (core.Upload, error) {
	limit := h.media.MaxBytes()
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return core.Upload{}, h.media.TooLarge()
		}
		return core.Upload{}, common.Validation("Invalid multipart form: " + err.Error())
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return core.Upload{}, common.Validation("File is required")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		return core.Upload{}, fmt.Errorf("failed to read upload: %w", err)
	}
	return core.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
		Query:       r.FormValue("query"),
		SessionID:   r.FormValue("session_id"),
	}, nil
}

func fileURL(r *http.Request, storedName string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s/%s", scheme, r.Host, uploadsPath, storedName)
}

func (h *APIHandler) UploadImageHandler(w http.ResponseWriter, r *http.Request) {
	up, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.media.UploadImage(r.Context(), up)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body := map[string]any{
		"status":     "success",
		"file_path":  res.FilePath,
		"url":        fileURL(r, res.StoredName),
		"timestamp":  h.timestamp(),
		"message":    res.Message,
		"session_id": res.SessionID,
	}
	if res.Analysis != "" {
		body["ai_response"] = res.Analysis
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *APIHandler) UploadDocumentHandler(w http.ResponseWriter, r *http.Request) {
	up, err := h.readUpload(w, r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.media.UploadDocument(r.Context(), up)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	body := map[string]any{
		"status":     "success",
		"file_path":  res.FilePath,
		"file_name":  res.FileName,
		"message":    res.Message,
		"session_id": res.SessionID,
	}
	if res.Analysis != "" {
		body["ai_response"] = res.Analysis
		body["timestamp"] = h.timestamp()
	}
	writeJSON(w, http.StatusOK, body)
}

func (h *APIHandler) GetProfileHandler(w http.ResponseWriter, r *http.Request) {
	p, err := h.profile.Get(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *APIHandler) UpdateProfileHandler(w http.ResponseWriter, r *http.Request) {
	var req core.ProfileUpdate
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	p, err := h.profile.Update(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Profile updated successfully", "profile": p})
}

func (h *APIHandler) UserQueriesHandler(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	limit, err := queryInt(r, "limit", core.DefaultQueriesLimit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	queries, err := h.chat.UserQueries(r.Context(), username, limit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"username": username, "total": len(queries), "queries": queries})
}

func (h *APIHandler) AllQueriesHandler(w http.ResponseWriter, r *http.Request) {
	queries, err := h.chat.AllQueries(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"total": len(queries), "queries": queries})
}

package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/vango-go/live-gateway/pkg/gateway/live/sessions"
)

// CallbackHandler receives out-of-band approval notifications, e.g. from a
// CRM workflow that a manager approved a pending discount. It marks the
// approval in the target session's context and injects a model turn so the
// agent tells the customer without waiting for their next message.
type CallbackHandler struct {
	Logger   *slog.Logger
	Sessions *sessions.Registry
}

type callbackRequest struct {
	RequestID       string `json:"requestId"`
	AgentMessage    string `json:"agentMessage"`
	ManagerApproved *bool  `json:"manager_approved"`
}

func (h CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if r.Method != http.MethodPost {
		writeCallbackJSON(w, http.StatusMethodNotAllowed, map[string]any{"error": "Method not allowed"})
		return
	}

	var req callbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeCallbackJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON"})
		return
	}
	if req.RequestID == "" {
		writeCallbackJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing session_id (requestId)"})
		return
	}

	member, ok := h.Sessions.Get(req.RequestID)
	if !ok {
		logger.Warn("callback for unknown session", "session_id", req.RequestID)
		writeCallbackJSON(w, http.StatusNotFound, map[string]any{"error": "Invalid session_id"})
		return
	}

	approved := true
	if req.ManagerApproved != nil {
		approved = *req.ManagerApproved
	}
	message := req.AgentMessage
	if message == "" {
		message = "Callback received, processing."
	}

	member.SetContext("manager_approved", approved)
	if err := member.InjectModelTurn(message); err != nil {
		logger.Error("callback turn injection failed", "session_id", req.RequestID, "error", err)
		writeCallbackJSON(w, http.StatusInternalServerError, map[string]any{"error": "Internal server error"})
		return
	}

	logger.Info("callback delivered", "session_id", req.RequestID, "manager_approved", approved)
	writeCallbackJSON(w, http.StatusOK, map[string]any{"status": "success"})
}

func writeCallbackJSON(w http.ResponseWriter, status int, body map[string]any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/vardakademi/gdprguard/internal/escalation"
	"go.uber.org/zap"
)

// scanRequest is the payload for submission and upload scans.
type scanRequest struct {
	UserID string `json:"user_id"`
	// Source names the submitting surface: "chat", "logbook" or "upload".
	Source string `json:"source,omitempty"`
	Text   string `json:"text"`
}

// scanResponse reports the scan decision to the caller.
type scanResponse struct {
	Safe           bool   `json:"safe"`
	Reason         string `json:"reason,omitempty"`
	Severity       string `json:"severity,omitempty"`
	Category       string `json:"category,omitempty"`
	ViolationCount int    `json:"violation_count,omitempty"`
	Locked         bool   `json:"locked,omitempty"`
	Notice         string `json:"notice,omitempty"`
}

// textRequest is the payload for sanitize and redact calls.
type textRequest struct {
	Text string `json:"text"`
}

// sanitizeResponse carries sanitized AI output.
type sanitizeResponse struct {
	Text     string `json:"text"`
	Redacted bool   `json:"redacted"`
}

// accountRequest is the payload for account provisioning.
type accountRequest struct {
	UserID string `json:"user_id"`
}

// accountStatusResponse reports the violation standing of an account.
type accountStatusResponse struct {
	UserID         string `json:"user_id"`
	ViolationCount int    `json:"violation_count"`
	Locked         bool   `json:"locked"`
}

// sessionRequest is the payload for session registration.
type sessionRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// handleSubmissionScan guards user-authored chat and logbook text. Unsafe
// text blocks the submission and increments the violation counter; the third
// strike locks the account. A locked user is rejected before any scanning
// happens.
func (s *Server) handleSubmissionScan(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeScanRequest(w, r)
	if !ok {
		return
	}

	allowed, err := s.tracker.Allowed(r.Context(), req.UserID)
	if err != nil {
		// Fail closed: no submission proceeds while violation accounting
		// is unreliable.
		s.writeError(w, http.StatusServiceUnavailable, "Tjänsten är tillfälligt otillgänglig. Försök igen senare.")
		return
	}
	if !allowed {
		s.writeJSON(w, http.StatusForbidden, scanResponse{
			Safe:   false,
			Locked: true,
			Notice: escalation.LockoutNotice,
		})
		return
	}

	result := s.guard.Scan(req.Text)
	if result.Safe {
		s.writeJSON(w, http.StatusOK, scanResponse{Safe: true})
		return
	}

	outcome, err := s.tracker.RecordViolation(r.Context(), req.UserID, result)
	if err != nil {
		if errors.Is(err, escalation.ErrAccountLocked) || errors.Is(err, escalation.ErrAccountNotFound) {
			s.writeJSON(w, http.StatusForbidden, scanResponse{
				Safe:   false,
				Locked: true,
				Notice: escalation.LockoutNotice,
			})
			return
		}
		s.logger.Error("violation accounting failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "Tjänsten är tillfälligt otillgänglig. Försök igen senare.")
		return
	}

	resp := scanResponse{
		Safe:           false,
		Reason:         result.Reason,
		Severity:       string(result.Severity),
		Category:       string(result.Category),
		ViolationCount: outcome.Count,
		Locked:         outcome.LockedNow,
	}
	if outcome.LockedNow {
		resp.Notice = escalation.LockoutNotice
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleUploadScan guards the extracted text of uploaded documents before it
// reaches the AI subsystem. Uploads are reject-only: by policy they do not
// increment the violation counter unless escalation.count_uploads says so.
func (s *Server) handleUploadScan(w http.ResponseWriter, r *http.Request) {
	if s.config.Escalation.CountUploads {
		s.handleSubmissionScan(w, r)
		return
	}

	req, ok := s.decodeScanRequest(w, r)
	if !ok {
		return
	}

	allowed, err := s.tracker.Allowed(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "Tjänsten är tillfälligt otillgänglig. Försök igen senare.")
		return
	}
	if !allowed {
		s.writeJSON(w, http.StatusForbidden, scanResponse{
			Safe:   false,
			Locked: true,
			Notice: escalation.LockoutNotice,
		})
		return
	}

	result := s.guard.Scan(req.Text)
	if result.Safe {
		s.writeJSON(w, http.StatusOK, scanResponse{Safe: true})
		return
	}

	s.writeJSON(w, http.StatusOK, scanResponse{
		Safe:     false,
		Reason:   result.Reason,
		Severity: string(result.Severity),
		Category: string(result.Category),
	})
}

// handleSanitizeResponse cleans AI-generated text before it is rendered or
// persisted. This path never touches the violation counter.
func (s *Server) handleSanitizeResponse(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	text, redacted := s.guard.SanitizeResponse(req.Text)
	s.writeJSON(w, http.StatusOK, sanitizeResponse{Text: text, Redacted: redacted})
}

// handleRedact returns a redacted copy of the text.
func (s *Server) handleRedact(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	redacted := s.guard.Redact(req.Text)
	s.writeJSON(w, http.StatusOK, sanitizeResponse{
		Text:     redacted,
		Redacted: redacted != req.Text,
	})
}

// handleCreateAccount provisions a trainee account with a clean violation
// record. Provisioning is idempotent.
func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var req accountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	if err := s.accounts.CreateAccount(r.Context(), req.UserID); err != nil {
		s.logger.Error("account provisioning failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "Tjänsten är tillfälligt otillgänglig. Försök igen senare.")
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{"user_id": req.UserID})
}

// handleAccountStatus reports the violation counter and lock state, so the
// frontend can show a trainee how many warnings remain.
func (s *Server) handleAccountStatus(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["user_id"]

	acc, err := s.accounts.Get(r.Context(), userID)
	if errors.Is(err, escalation.ErrAccountNotFound) {
		s.writeError(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		s.logger.Error("account lookup failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "Tjänsten är tillfälligt otillgänglig. Försök igen senare.")
		return
	}

	s.writeJSON(w, http.StatusOK, accountStatusResponse{
		UserID:         acc.ID,
		ViolationCount: acc.ViolationCount,
		Locked:         acc.LockedAt.Valid,
	})
}

// handleRegisterSession records a browser session in the registry so that a
// later lockout terminates it on every tab and device. Locked users cannot
// open new sessions.
func (s *Server) handleRegisterSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.SessionID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id and session_id are required")
		return
	}

	allowed, err := s.tracker.Allowed(r.Context(), req.UserID)
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, "Tjänsten är tillfälligt otillgänglig. Försök igen senare.")
		return
	}
	if !allowed {
		s.writeJSON(w, http.StatusForbidden, scanResponse{
			Safe:   false,
			Locked: true,
			Notice: escalation.LockoutNotice,
		})
		return
	}

	if err := s.sessions.RegisterSession(r.Context(), req.UserID, req.SessionID); err != nil {
		s.logger.Error("session registration failed", zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "Tjänsten är tillfälligt otillgänglig. Försök igen senare.")
		return
	}

	s.writeJSON(w, http.StatusCreated, map[string]string{
		"user_id":    req.UserID,
		"session_id": req.SessionID,
	})
}

// decodeScanRequest decodes and validates a scan payload.
func (s *Server) decodeScanRequest(w http.ResponseWriter, r *http.Request) (scanRequest, bool) {
	var req scanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return req, false
	}
	if req.UserID == "" {
		s.writeError(w, http.StatusBadRequest, "user_id is required")
		return req, false
	}
	return req, true
}

// writeJSON writes a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
	}
}

// writeError writes a plain JSON error. The message is user-facing: no
// internal details, no pattern information.
func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

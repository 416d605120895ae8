package server

import (
	"errors"
	"net/http"

	"github.com/wyemhu12/vikini-sub002/attachment"
	"github.com/wyemhu12/vikini-sub002/chat"
	"github.com/wyemhu12/vikini-sub002/log"
	"github.com/wyemhu12/vikini-sub002/types"
)

// handleChat handles POST /api/chat. Every rejection is decided before the
// first stream byte; once headers are sent, failures only end the stream.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.auth.Authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body chat.Request
	if !s.decode(w, r, &body) {
		return
	}
	body.RequestID = RequestID(r.Context())

	turn, err := s.chat.Prepare(r.Context(), userID, body)
	if err != nil {
		status, msg := chatStatus(err)
		writeError(w, status, msg)
		return
	}

	h := w.Header()
	h.Set("Content-Type", s.codec.ContentType())
	h.Set("Cache-Control", "no-cache, no-transform")
	h.Set("X-Accel-Buffering", "no")
	h.Set(ConversationIDHeader, turn.Conversation().ID)
	w.WriteHeader(http.StatusOK)

	res, err := turn.Run(r.Context(), s.codec.NewWriter(w))
	if err != nil {
		s.logger.ForRequest(log.Meta{
			RequestID:      body.RequestID,
			UserID:         userID,
			ConversationID: res.Conversation.ID,
		}).Warn("chat turn ended with error", map[string]any{"error": err.Error(), "outcome": res.Outcome})
	}
}

func chatStatus(err error) (int, string) {
	switch {
	case errors.Is(err, chat.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, chat.ErrInvalidRequest):
		return http.StatusBadRequest, "message is required"
	case errors.Is(err, chat.ErrConversationNotFound):
		return http.StatusNotFound, "conversation not found"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

// AnalyzeResponse is the body of a successful attachment analysis.
type AnalyzeResponse struct {
	Message  types.Message `json:"message"`
	Warnings []string      `json:"warnings"`
}

// handleAnalyze handles POST /api/attachments/analyze.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, ok := s.auth.Authenticate(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	var body attachment.Request
	if !s.decode(w, r, &body) {
		return
	}
	body.RequestID = RequestID(r.Context())

	res, err := s.analyzer.Analyze(r.Context(), userID, body)
	if err != nil {
		status, msg := analyzeStatus(err)
		if status >= http.StatusInternalServerError {
			s.logger.ForRequest(log.Meta{RequestID: body.RequestID, UserID: userID}).Error("attachment analysis failed", map[string]any{
				"attachment_id": body.AttachmentID,
				"error":         err.Error(),
			})
		}
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusOK, AnalyzeResponse{Message: res.Message, Warnings: res.Warnings})
}

func analyzeStatus(err error) (int, string) {
	switch {
	case errors.Is(err, attachment.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, attachment.ErrInvalidRequest):
		return http.StatusBadRequest, "attachmentId is required"
	case errors.Is(err, attachment.ErrNotFound):
		return http.StatusNotFound, "attachment not found"
	case errors.Is(err, attachment.ErrUpstream):
		return http.StatusBadGateway, "model request failed"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.collector.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": types.Version})
}

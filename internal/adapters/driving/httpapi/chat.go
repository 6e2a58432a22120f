package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/custodia-labs/ragbot/internal/core/domain"
	"github.com/custodia-labs/ragbot/internal/logger"
)

// ChatRequest is the body of POST /v1/chat. With SessionID the session's
// turns are the history and both turns are recorded; otherwise History is
// used as given.
type ChatRequest struct {
	Question  string                    `json:"question"`
	SessionID string                    `json:"session_id,omitempty"`
	History   []domain.ConversationTurn `json:"history,omitempty"`
}

// Chat handles POST /v1/chat and streams the answer as server-sent events
// named after the event kind.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(ctx, w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}

	var events <-chan domain.StreamEvent
	if req.SessionID != "" {
		ch, err := h.deps.Conversation.Ask(ctx, userID(ctx), req.SessionID, req.Question)
		if err != nil {
			respondError(ctx, w, statusFor(err), err)
			return
		}
		events = ch
	} else {
		events = h.deps.Chat.Ask(ctx, userID(ctx), req.Question, req.History)
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for ev := range events {
		if err := writeEvent(w, ev); err != nil {
			logger.FromContext(ctx).Debug("client went away", zap.Error(err))
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, ev domain.StreamEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data)
	return err
}

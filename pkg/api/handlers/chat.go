package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"chatrelay/pkg/logger"
	"chatrelay/pkg/markdown"
	"chatrelay/pkg/models"
	"chatrelay/pkg/normalize"
	"chatrelay/pkg/store"
	"chatrelay/pkg/utils"
	"chatrelay/pkg/webhook"
)

// chatRequest is what the browser client posts for one turn.
type chatRequest struct {
	Message     string              `json:"message"`
	SessionID   string              `json:"sessionId"`
	Attachments []models.Attachment `json:"attachments,omitempty"`
}

// chatResponse carries the normalized reply back to the client.
type chatResponse struct {
	Success   bool   `json:"success"`
	Reply     string `json:"reply"`
	ReplyHTML string `json:"replyHTML,omitempty"`
}

// RegisterChat registers the chat relay endpoint.
func RegisterChat(r *mux.Router, relay *webhook.Client) {
	r.HandleFunc("/chat", func(w http.ResponseWriter, req *http.Request) {
		handleChat(w, req, relay)
	}).Methods(http.MethodPost)
}

// handleChat runs one turn as a sequential pipeline: persist the user
// message, relay to the webhook, normalize, persist the assistant message.
// On relay failure nothing is appended for the assistant; the user message
// stays in the log.
func handleChat(w http.ResponseWriter, r *http.Request, relay *webhook.Client) {
	var in chatRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if in.Message == "" || in.SessionID == "" {
		utils.JSONError(w, http.StatusBadRequest, "message and sessionId are required")
		return
	}

	now := time.Now().UTC()
	userMsg := models.Message{
		ID:          utils.GenID(),
		Session:     in.SessionID,
		Role:        models.RoleUser,
		Content:     in.Message,
		Timestamp:   now,
		Attachments: in.Attachments,
	}
	if err := store.AppendMessage(in.SessionID, userMsg); err != nil {
		if !errors.Is(err, store.ErrSessionNotFound) {
			utils.JSONError(w, http.StatusInternalServerError, "failed to persist message")
			return
		}
		// unknown session ids are created on first use rather than
		// silently dropping the message
		s := models.Session{ID: in.SessionID, Title: store.DefaultTitle, CreatedAt: now, UpdatedAt: now}
		if err := store.SaveSession(s); err != nil {
			utils.JSONError(w, http.StatusInternalServerError, "failed to create session")
			return
		}
		if err := store.AppendMessage(in.SessionID, userMsg); err != nil {
			utils.JSONError(w, http.StatusInternalServerError, "failed to persist message")
			return
		}
	}

	payload := webhook.Payload{
		Message:     in.Message,
		SessionID:   in.SessionID,
		Attachments: in.Attachments,
		FullMessage: webhook.BuildFullMessage(in.Message, in.Attachments),
	}
	raw, err := relay.Send(r.Context(), payload)
	if err != nil {
		status, msg := relayError(err)
		utils.JSONError(w, status, msg)
		return
	}

	reply := normalize.Reply(raw)
	assistantMsg := models.Message{
		ID:        utils.GenID(),
		Session:   in.SessionID,
		Role:      models.RoleAssistant,
		Content:   reply,
		Timestamp: time.Now().UTC(),
	}
	if err := store.AppendMessage(in.SessionID, assistantMsg); err != nil {
		logger.Error("assistant_message_persist_failed", "session", in.SessionID, "error", err)
	}

	utils.JSONWrite(w, http.StatusOK, chatResponse{
		Success:   true,
		Reply:     reply,
		ReplyHTML: markdown.Render(reply),
	})
}

// relayError maps webhook failure codes onto client-facing statuses.
func relayError(err error) (int, string) {
	var werr *webhook.Error
	if !errors.As(err, &werr) {
		return http.StatusInternalServerError, "internal server error"
	}
	switch werr.Code {
	case webhook.ErrCodeCert:
		return http.StatusInternalServerError, "certificate error; configure the webhook CA certificate"
	case webhook.ErrCodeDNS:
		return http.StatusBadGateway, "webhook endpoint not found; check network access"
	case webhook.ErrCodeRefused:
		return http.StatusBadGateway, "connection refused by the webhook server"
	case webhook.ErrCodeTimeout:
		return http.StatusGatewayTimeout, "webhook connection timed out"
	case webhook.ErrCodeUpstreamStatus:
		return http.StatusBadGateway, "webhook returned an error status"
	}
	return http.StatusInternalServerError, "internal server error"
}

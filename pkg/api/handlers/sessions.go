package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"chatrelay/pkg/models"
	"chatrelay/pkg/store"
	"chatrelay/pkg/utils"
)

// RegisterSessions registers all session-related HTTP routes to the
// provided router.
func RegisterSessions(r *mux.Router) {
	// Collection routes
	r.HandleFunc("/v1/sessions", createSession).Methods(http.MethodPost)
	r.HandleFunc("/v1/sessions", listSessions).Methods(http.MethodGet)
	r.HandleFunc("/v1/sessions", clearSessions).Methods(http.MethodDelete)

	// Resumption endpoint; registered before {id} so the literal wins
	r.HandleFunc("/v1/sessions/active", activeSession).Methods(http.MethodGet)

	// Single resource routes
	r.HandleFunc("/v1/sessions/{id}", getSession).Methods(http.MethodGet)
	r.HandleFunc("/v1/sessions/{id}", deleteSession).Methods(http.MethodDelete)

	// Session-scoped messages
	r.HandleFunc("/v1/sessions/{id}/messages", listSessionMessages).Methods(http.MethodGet)
	r.HandleFunc("/v1/sessions/{id}/messages", appendSessionMessage).Methods(http.MethodPost)
}

// createSession handles POST /v1/sessions. The body may carry an id and
// title; both are generated when absent.
func createSession(w http.ResponseWriter, r *http.Request) {
	var s models.Session
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if s.ID == "" {
		s.ID = utils.GenSessionID()
	}
	if s.Title == "" {
		s.Title = store.DefaultTitle
	}
	now := time.Now().UTC()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.Messages = nil
	if err := store.SaveSession(s); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	saved, err := store.GetSession(s.ID)
	if err != nil {
		// store may run degraded; echo what was requested
		saved = s
		saved.UpdatedAt = now
	}
	utils.JSONWrite(w, http.StatusCreated, saved)
}

// listSessions handles GET /v1/sessions, returning the whole collection in
// creation order.
func listSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := store.ListSessions()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if sessions == nil {
		sessions = []models.Session{}
	}
	utils.JSONWrite(w, http.StatusOK, struct {
		Sessions []models.Session `json:"sessions"`
	}{Sessions: sessions})
}

// activeSession handles GET /v1/sessions/active: the startup resumption
// policy exposed over HTTP. A fresh session is created when none exists or
// the most recent one is still empty.
func activeSession(w http.ResponseWriter, r *http.Request) {
	s, err := store.ResumeSession()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.Messages == nil {
		s.Messages = []models.Message{}
	}
	utils.JSONWrite(w, http.StatusOK, s)
}

func getSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	s, err := store.GetSession(id)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			utils.JSONError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if s.Messages == nil {
		s.Messages = []models.Message{}
	}
	utils.JSONWrite(w, http.StatusOK, s)
}

func deleteSession(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := store.DeleteSession(id); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			utils.JSONError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func clearSessions(w http.ResponseWriter, r *http.Request) {
	if err := store.ClearAll(); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func listSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := store.GetSession(id); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			utils.JSONError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	msgs, err := store.ListMessages(id)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	utils.JSONWrite(w, http.StatusOK, struct {
		Session  string           `json:"session"`
		Messages []models.Message `json:"messages"`
	}{Session: id, Messages: msgs})
}

// appendSessionMessage handles POST /v1/sessions/{id}/messages for callers
// that persist messages directly, outside the chat relay pipeline.
func appendSessionMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var m models.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if m.Content == "" {
		utils.JSONError(w, http.StatusBadRequest, "content is required")
		return
	}
	if m.ID == "" {
		m.ID = utils.GenID()
	}
	if m.Role == "" {
		m.Role = models.RoleUser
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	m.Session = id
	if err := store.AppendMessage(id, m); err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			utils.JSONError(w, http.StatusNotFound, "session not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	utils.JSONWrite(w, http.StatusCreated, m)
}

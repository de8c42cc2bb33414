// Package api exposes the relay's HTTP surface: the chat and upload
// endpoints the browser client talks to, and the session management API.
package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"chatrelay/pkg/api/handlers"
	"chatrelay/pkg/files"
	"chatrelay/pkg/webhook"
)

// Deps carries the wired dependencies the handlers need.
type Deps struct {
	Relay     *webhook.Client
	Validator files.Validator
}

// NewRouter builds the application router.
func NewRouter(deps Deps) http.Handler {
	r := mux.NewRouter()
	handlers.RegisterChat(r, deps.Relay)
	handlers.RegisterUpload(r, deps.Validator)
	handlers.RegisterSessions(r)
	return r
}

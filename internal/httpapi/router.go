// Package httpapi wires the relay's HTTP surface: the authenticated v2
// event/evidence endpoints and the thin PAT-authenticated v1 convenience
// wrappers, both over go-chi.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"forgerelay/internal/infrastructure/forge"
	relayusecase "forgerelay/internal/usecase/relay"
)

// API holds the collaborators every handler needs.
type API struct {
	relay     *relayusecase.Service
	v1        *forge.Client // nil disables the v1 routes
	sharedKey string
	v1Token   string
}

func New(relaySvc *relayusecase.Service, v1Client *forge.Client, sharedKey, v1Token string) *API {
	return &API{relay: relaySvc, v1: v1Client, sharedKey: sharedKey, v1Token: v1Token}
}

func (a *API) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/v2", func(r chi.Router) {
		r.Use(requireSharedSecret(a.sharedKey))
		r.Post("/events", a.handlePostEvent)
		r.Post("/evidence", a.handlePostEvidence)
		r.Get("/evidence/{id}", a.handleGetEvidence)
	})

	if a.v1 != nil {
		r.Route("/v1", func(r chi.Router) {
			r.Use(requireBearerToken(a.v1Token))
			r.Post("/directive", a.handleV1Directive)
			r.Post("/comment", a.handleV1Comment)
			r.Post("/close", a.handleV1Close)
			r.Post("/labels", a.handleV1Labels)
		})
	}

	return r
}

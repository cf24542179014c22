package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zhouzirui/gemini-relay/backend/internal/handler/relay"
	middlewarePkg "github.com/zhouzirui/gemini-relay/backend/internal/middleware"
	relayService "github.com/zhouzirui/gemini-relay/backend/internal/service/relay"
)

// NewRouter wires HTTP routes to core services.
func NewRouter(relaySvc *relayService.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	relayHandler := relay.New(relaySvc)

	r.Route("/api", func(api chi.Router) {
		relayHandler.RegisterRoutes(api)
	})

	return r
}

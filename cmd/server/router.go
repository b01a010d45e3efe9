package main

import (
	"net/http"

	"github.com/ashureev/supportchat/internal/api"
	"github.com/ashureev/supportchat/internal/chat"
	"github.com/ashureev/supportchat/internal/config"
	"github.com/ashureev/supportchat/internal/middleware"
	"github.com/ashureev/supportchat/web"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
)

// newRouter wires every route onto a chi router.
func newRouter(cfg *config.Config, model chat.Model) http.Handler {
	healthHandler := api.NewHealthHandler(cfg.Gemini.Model, cfg.WebSocketEnabled)
	chatHandler := chat.NewHandler(chat.NewService(model), chat.Options{
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		WebSocketEnabled:   cfg.WebSocketEnabled,
	})

	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.CORSAllowedOrigins))

	healthHandler.RegisterHealth(r)
	chatHandler.RegisterRoutes(r)

	// Chat page (catch-all).
	r.Handle("/*", web.Handler())

	return r
}

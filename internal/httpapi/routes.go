package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/DoyleJ11/auction-room-backend/internal/ws"
)

func SetupRoutes(d Deps) http.Handler {
	d = d.withDefaults()
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(Recovery(d.Log))
	r.Use(Logging(d.Log))

	// Public routes
	r.Post("/rooms", CreateRoom(d))
	r.Get("/rooms", ListRooms(d))
	r.Get("/rooms/{code}", GetRoom(d))
	r.Get("/catalog/{season}", GetCatalog(d))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, d.Log))
	return r
}

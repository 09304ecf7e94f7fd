package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hexroom/hexroom/internal/hub"
	"github.com/hexroom/hexroom/internal/ws"
)

func SetupRoutes(h *hub.Hub, log *zap.Logger, service, port string) http.Handler {
	r := chi.NewRouter()

	r.Post("/rooms", CreateRoom(h, log))
	r.Get("/rooms", ListRooms(h))
	r.Get("/healthz", Healthz(service, port))
	r.Get("/ws", ws.Handler(h, log))
	return r
}

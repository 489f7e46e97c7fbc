package list

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/comercio/order-session/internal/models"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	resp "github.com/comercio/order-session/lib/api/response"
	"github.com/comercio/order-session/lib/logger/sl"
)

// Response - список клиентов проекта для селектора клиента.
type Response struct {
	resp.Response
	Clients []models.Client `json:"clients"`
}

type ClientLister interface {
	Clients(ctx context.Context) ([]models.Client, error)
}

func New(log *slog.Logger, gw ClientLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.clients.list.New"

		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		clients, err := gw.Clients(r.Context())
		if err != nil {
			log.Error("failed to fetch clients", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to fetch clients"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Clients:  clients,
		})
	}
}

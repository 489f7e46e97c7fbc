package addresses

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/comercio/order-session/internal/models"
	"github.com/comercio/order-session/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	strg "github.com/comercio/order-session/internal/storage"
	resp "github.com/comercio/order-session/lib/api/response"
	"github.com/comercio/order-session/lib/logger/sl"
)

// Response - сохраненные адреса клиента сессии. Выбор одного из них
// в форме доставки предзаполняет город и улицу; пустой address_id
// означает новый адрес с ручным вводом.
type Response struct {
	resp.Response
	Addresses []models.Address `json:"addresses"`
}

type SessionGetter interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

type AddressLister interface {
	Addresses(ctx context.Context, clientID string) ([]models.Address, error)
}

func New(log *slog.Logger, sessions SessionGetter, gw AddressLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.checkout.addresses.New"

		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		s, err := sessions.Get(r.Context(), chi.URLParam(r, "sessionID"))
		if errors.Is(err, strg.ErrNoSession) {
			render.JSON(w, r, resp.Error("session not found"))

			return
		}
		if err != nil {
			log.Error("failed to get session", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to get session"))

			return
		}

		if s.Client == nil {
			render.JSON(w, r, resp.Error("client is not selected"))

			return
		}

		addresses, err := gw.Addresses(r.Context(), s.Client.ID)
		if err != nil {
			log.Error("failed to fetch addresses", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to fetch addresses"))

			return
		}

		render.JSON(w, r, Response{
			Response:  resp.OK(),
			Addresses: addresses,
		})
	}
}

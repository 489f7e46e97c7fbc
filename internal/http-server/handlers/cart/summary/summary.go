package summary

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

// Response - сводка корзины: выбранные товары и последнее подтверждение
// цены от шлюза. Подтверждение с stale=true означает, что корзина менялась
// после последнего успешного расчета.
type Response struct {
	resp.Response
	SelectedCategories []models.Category         `json:"selected_categories"`
	Confirmation       *models.OrderConfirmation `json:"confirmation,omitempty"`
}

type SessionGetter interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

func New(log *slog.Logger, sessions SessionGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.cart.summary.New"

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

		render.JSON(w, r, Response{
			Response:           resp.OK(),
			SelectedCategories: s.SelectedCategories,
			Confirmation:       s.Confirmation,
		})
	}
}

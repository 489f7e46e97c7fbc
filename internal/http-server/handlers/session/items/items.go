package items

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/comercio/order-session/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	strg "github.com/comercio/order-session/internal/storage"
	resp "github.com/comercio/order-session/lib/api/response"
	"github.com/comercio/order-session/lib/logger/sl"
)

// Request устанавливает количество товара в корзине. Ноль убирает товар
// из выбранных, оставляя его в каталоге.
type Request struct {
	SKU      string `json:"sku" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
}

type Response struct {
	resp.Response
	Session *session.Session `json:"session"`
}

type QuantitySetter interface {
	SetQuantity(ctx context.Context, id, sku string, quantity int) (*session.Session, error)
}

func New(log *slog.Logger, sessions QuantitySetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.session.items.New"

		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("failed to decode json body", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to decode request"))

			return
		}

		if err := validator.New().Struct(req); err != nil {
			validateErr := err.(validator.ValidationErrors)

			log.Error("invalid request", sl.Err(err))

			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		s, err := sessions.SetQuantity(r.Context(), chi.URLParam(r, "sessionID"), req.SKU, req.Quantity)
		if errors.Is(err, strg.ErrNoSession) {
			render.JSON(w, r, resp.Error("session not found"))

			return
		}
		if errors.Is(err, session.ErrUnknownProduct) {
			log.Info("unknown product", slog.String("sku", req.SKU))

			render.JSON(w, r, resp.Error("unknown product"))

			return
		}
		if err != nil {
			log.Error("failed to set quantity", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to set quantity"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Session:  s,
		})
	}
}

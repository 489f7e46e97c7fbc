package discount

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

// Request выбирает пакет скидок из доступных клиенту сессии.
type Request struct {
	DiscountID string `json:"discount_id" validate:"required"`
}

type Response struct {
	resp.Response
	Session *session.Session `json:"session"`
}

type DiscountSelector interface {
	SelectDiscount(ctx context.Context, id, discountID string) (*session.Session, error)
}

func New(log *slog.Logger, sessions DiscountSelector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.session.discount.New"

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

		s, err := sessions.SelectDiscount(r.Context(), chi.URLParam(r, "sessionID"), req.DiscountID)
		if errors.Is(err, strg.ErrNoSession) {
			render.JSON(w, r, resp.Error("session not found"))

			return
		}
		if errors.Is(err, session.ErrUnknownDiscount) {
			log.Info("unknown discount package", slog.String("discount_id", req.DiscountID))

			render.JSON(w, r, resp.Error("unknown discount package"))

			return
		}
		if err != nil {
			log.Error("failed to select discount", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to select discount"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Session:  s,
		})
	}
}

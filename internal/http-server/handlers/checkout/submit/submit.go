// Package submit обслуживает два финальных действия оформления:
// сохранение черновика и создание заказа. Ошибки шлюза транслируются
// пользователю как сообщение, состояние сессии при этом сохраняется
// для повторной попытки.
package submit

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/comercio/order-session/internal/checkout"
	"github.com/comercio/order-session/internal/gateway"
	"github.com/comercio/order-session/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	strg "github.com/comercio/order-session/internal/storage"
	resp "github.com/comercio/order-session/lib/api/response"
	"github.com/comercio/order-session/lib/logger/sl"
)

type Response struct {
	resp.Response
	Result *checkout.Result `json:"result,omitempty"`
}

type Checkout interface {
	SaveDraft(ctx context.Context, sessionID string, form checkout.Form) (*checkout.Result, error)
	Finalize(ctx context.Context, sessionID string, form checkout.Form) (*checkout.Result, error)
}

// Draft сохраняет сессию как черновик заказа.
func Draft(log *slog.Logger, svc Checkout) http.HandlerFunc {
	return handler(log, "handlers.checkout.submit.Draft", svc.SaveDraft)
}

// Finalize создает заказ из сессии.
func Finalize(log *slog.Logger, svc Checkout) http.HandlerFunc {
	return handler(log, "handlers.checkout.submit.Finalize", svc.Finalize)
}

func handler(log *slog.Logger, fn string, submit func(ctx context.Context, sessionID string, form checkout.Form) (*checkout.Result, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var form checkout.Form

		if err := render.DecodeJSON(r.Body, &form); err != nil {
			log.Error("failed to decode json body", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to decode request"))

			return
		}

		result, err := submit(r.Context(), chi.URLParam(r, "sessionID"), form)
		if err != nil {
			var (
				validateErr validator.ValidationErrors
				gwErr       *gateway.Error
			)

			switch {
			case errors.As(err, &validateErr):
				log.Info("form validation failed", sl.Err(err))

				render.JSON(w, r, resp.ValidationError(validateErr))

			case errors.Is(err, strg.ErrNoSession):
				render.JSON(w, r, resp.Error("session not found"))

			case errors.Is(err, session.ErrInvalidTransition):
				render.JSON(w, r, resp.Error("session is not in checkout"))

			case errors.Is(err, session.ErrDraftResume):
				render.JSON(w, r, resp.Error("a resumed draft can't be saved as a draft again"))

			case errors.Is(err, checkout.ErrUnknownAddress):
				render.JSON(w, r, resp.Error("unknown address"))

			case errors.As(err, &gwErr):
				// Бизнес-отказ шлюза показываем как есть.
				log.Info("gateway rejected submission", sl.Err(err))

				render.JSON(w, r, resp.Error(gwErr.Message))

			default:
				log.Error("failed to submit order", sl.Err(err))

				render.JSON(w, r, resp.Error("failed to submit order"))
			}

			return
		}

		log.Info("order submitted",
			slog.String("order_id", result.OrderID),
			slog.String("redirect_url", result.RedirectURL),
		)

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Result:   result,
		})
	}
}

// Package phase обслуживает переходы конечного автомата сессии:
// из корзины к оформлению и обратно.
package phase

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/comercio/order-session/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"

	strg "github.com/comercio/order-session/internal/storage"
	resp "github.com/comercio/order-session/lib/api/response"
	"github.com/comercio/order-session/lib/logger/sl"
)

type Response struct {
	resp.Response
	Session *session.Session `json:"session"`
}

type PhaseSwitcher interface {
	BeginCheckout(ctx context.Context, id string) (*session.Session, error)
	BackToBrowsing(ctx context.Context, id string) (*session.Session, error)
}

// Continue переводит сессию к оформлению заказа.
func Continue(log *slog.Logger, sessions PhaseSwitcher) http.HandlerFunc {
	return handler(log, "handlers.cart.phase.Continue", func(ctx context.Context, id string) (*session.Session, error) {
		return sessions.BeginCheckout(ctx, id)
	})
}

// Back возвращает сессию из оформления к каталогу.
func Back(log *slog.Logger, sessions PhaseSwitcher) http.HandlerFunc {
	return handler(log, "handlers.cart.phase.Back", func(ctx context.Context, id string) (*session.Session, error) {
		return sessions.BackToBrowsing(ctx, id)
	})
}

func handler(log *slog.Logger, fn string, transition func(ctx context.Context, id string) (*session.Session, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		s, err := transition(r.Context(), chi.URLParam(r, "sessionID"))

		switch {
		case errors.Is(err, strg.ErrNoSession):
			render.JSON(w, r, resp.Error("session not found"))

		case errors.Is(err, session.ErrInvalidTransition):
			render.JSON(w, r, resp.Error("invalid phase transition"))

		case errors.Is(err, session.ErrNoClient):
			render.JSON(w, r, resp.Error("client is not selected"))

		case errors.Is(err, session.ErrNoItems):
			render.JSON(w, r, resp.Error("no products selected"))

		case err != nil:
			log.Error("failed to switch phase", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to switch phase"))

		default:
			log.Info("phase switched", slog.String("phase", string(s.Phase)))

			render.JSON(w, r, Response{
				Response: resp.OK(),
				Session:  s,
			})
		}
	}
}

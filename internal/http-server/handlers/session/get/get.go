package get

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

type SessionGetter interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

func New(log *slog.Logger, sessions SessionGetter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.session.get.New"

		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		sessionID := chi.URLParam(r, "sessionID")

		s, err := sessions.Get(r.Context(), sessionID)
		if errors.Is(err, strg.ErrNoSession) {
			log.Info("session not found", slog.String("session_id", sessionID))

			render.JSON(w, r, resp.Error("session not found"))

			return
		}
		if err != nil {
			log.Error("failed to get session", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to get session"))

			return
		}

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Session:  s,
		})
	}
}

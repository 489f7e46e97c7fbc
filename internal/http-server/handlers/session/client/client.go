package client

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

// Request выбирает клиента сессии. Клиент определяет доступные пакеты
// скидок, адреса и все последующие запросы к шлюзу.
type Request struct {
	ClientID string `json:"client_id" validate:"required,uuid"`
}

type Response struct {
	resp.Response
	Session *session.Session `json:"session"`
}

type ClientSelector interface {
	SelectClient(ctx context.Context, id, clientID string) (*session.Session, error)
}

func New(log *slog.Logger, sessions ClientSelector) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.session.client.New"

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

		s, err := sessions.SelectClient(r.Context(), chi.URLParam(r, "sessionID"), req.ClientID)
		if errors.Is(err, strg.ErrNoSession) {
			render.JSON(w, r, resp.Error("session not found"))

			return
		}
		if errors.Is(err, strg.ErrNoClient) {
			log.Info("client not found", slog.String("client_id", req.ClientID))

			render.JSON(w, r, resp.Error("client not found"))

			return
		}
		if err != nil {
			log.Error("failed to select client", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to select client"))

			return
		}

		log.Info("client selected", slog.String("client_id", req.ClientID))

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Session:  s,
		})
	}
}

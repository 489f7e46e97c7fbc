package start

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/comercio/order-session/internal/session"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	resp "github.com/comercio/order-session/lib/api/response"
	"github.com/comercio/order-session/lib/logger/sl"
)

// Request - тело запроса на создание сессии. Если указан draft_id,
// сессия продолжает сохраненный черновик и сразу переходит к оформлению.
type Request struct {
	DraftID string `json:"draft_id,omitempty" validate:"omitempty,uuid"`
}

type Response struct {
	resp.Response
	Session *session.Session `json:"session"`
}

type SessionStarter interface {
	Start(ctx context.Context) (*session.Session, error)
	Resume(ctx context.Context, draftID string) (*session.Session, error)
}

func New(log *slog.Logger, sessions SessionStarter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const fn = "handlers.session.start.New"

		log := log.With(
			slog.String("fn", fn),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		// Тело запроса опционально: без него создается пустая сессия.
		err := render.DecodeJSON(r.Body, &req)
		if err != nil && !errors.Is(err, io.EOF) {
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

		var s *session.Session

		if req.DraftID != "" {
			s, err = sessions.Resume(r.Context(), req.DraftID)
		} else {
			s, err = sessions.Start(r.Context())
		}
		if err != nil {
			log.Error("failed to start session", sl.Err(err))

			render.JSON(w, r, resp.Error("failed to start session"))

			return
		}

		log.Info("session started",
			slog.String("session_id", s.ID),
			slog.String("phase", string(s.Phase)),
		)

		render.JSON(w, r, Response{
			Response: resp.OK(),
			Session:  s,
		})
	}
}

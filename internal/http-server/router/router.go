// Package router собирает HTTP API сервиса сессий заказов.
package router

import (
	"log/slog"

	"github.com/comercio/order-session/internal/checkout"
	"github.com/comercio/order-session/internal/gateway"
	"github.com/comercio/order-session/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	cartphase "github.com/comercio/order-session/internal/http-server/handlers/cart/phase"
	cartsummary "github.com/comercio/order-session/internal/http-server/handlers/cart/summary"
	checkoutaddresses "github.com/comercio/order-session/internal/http-server/handlers/checkout/addresses"
	checkoutsubmit "github.com/comercio/order-session/internal/http-server/handlers/checkout/submit"
	clientslist "github.com/comercio/order-session/internal/http-server/handlers/clients/list"
	sessionclient "github.com/comercio/order-session/internal/http-server/handlers/session/client"
	sessiondiscount "github.com/comercio/order-session/internal/http-server/handlers/session/discount"
	sessionget "github.com/comercio/order-session/internal/http-server/handlers/session/get"
	sessionitems "github.com/comercio/order-session/internal/http-server/handlers/session/items"
	sessionstart "github.com/comercio/order-session/internal/http-server/handlers/session/start"
	mwlogger "github.com/comercio/order-session/internal/http-server/middleware/logger"
)

// New строит маршруты поверх менеджера сессий, сервиса оформления
// и клиента шлюза.
func New(log *slog.Logger, sessions *session.Manager, svc *checkout.Service, gw *gateway.Client) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(mwlogger.New(log))
	r.Use(middleware.Recoverer)

	r.Get("/clients", clientslist.New(log, gw))

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", sessionstart.New(log, sessions))

		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", sessionget.New(log, sessions))
			r.Post("/client", sessionclient.New(log, sessions))
			r.Put("/items", sessionitems.New(log, sessions))
			r.Put("/discount", sessiondiscount.New(log, sessions))

			r.Get("/cart", cartsummary.New(log, sessions))
			r.Post("/cart/checkout", cartphase.Continue(log, sessions))
			r.Post("/cart/back", cartphase.Back(log, sessions))

			r.Get("/checkout/addresses", checkoutaddresses.New(log, sessions, gw))
			r.Post("/checkout/draft", checkoutsubmit.Draft(log, svc))
			r.Post("/checkout/order", checkoutsubmit.Finalize(log, svc))
		})
	})

	return r
}

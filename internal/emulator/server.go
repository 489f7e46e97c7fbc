package emulator

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/comercio/order-session/internal/gateway"
	mwlogger "github.com/comercio/order-session/internal/http-server/middleware/logger"
	"github.com/comercio/order-session/internal/models"
	"github.com/comercio/order-session/internal/storage"
	"github.com/comercio/order-session/internal/storage/postgres"
	"github.com/comercio/order-session/lib/logger/sl"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/google/uuid"
)

// Storage - доступ эмулятора к своим данным.
type Storage interface {
	Clients(ctx context.Context) ([]models.Client, error)
	Client(ctx context.Context, id string) (*models.Client, error)
	Categories(ctx context.Context) ([]models.Category, error)
	ProductsBySKU(ctx context.Context, skus []string) (map[string]postgres.PricedProduct, error)
	DiscountPackages(ctx context.Context, clientID string) ([]models.DiscountPackage, error)
	DiscountPackage(ctx context.Context, id string) (*models.DiscountPackage, error)
	Addresses(ctx context.Context, clientID string) ([]models.Address, error)
	SaveDraft(ctx context.Context, draft *models.OrderDraft) error
	GetDraft(ctx context.Context, id string) (*models.OrderDraft, error)
	DeleteDraft(ctx context.Context, id string) error
	CreateOrder(ctx context.Context, orderID, clientID, draftID, discountID, notificationID string, items []models.OrderSummaryItem, shipping models.ShippingInformation) error
}

type Server struct {
	storage Storage
	log     *slog.Logger
}

func NewServer(storage Storage, log *slog.Logger) *Server {
	return &Server{storage: storage, log: log}
}

// Router собирает маршруты эмулятора. Контракт повторяет продакшн-шлюз:
// ответы - голый доменный JSON, ошибки - {"message": ...} со статусом.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(mwlogger.New(s.log))
	r.Use(middleware.Recoverer)

	r.Get("/clients", s.clients)
	r.Get("/categories", s.categories)
	r.Get("/clients/{clientID}/discounts", s.discounts)
	r.Get("/clients/{clientID}/addresses", s.addresses)
	r.Post("/orders/confirm", s.confirmOrder)
	r.Post("/orders", s.createOrder)
	r.Post("/orders/drafts", s.createDraft)
	r.Get("/orders/drafts/{draftID}", s.getDraft)
	r.Post("/orders/drafts/{draftID}/finalize", s.finalizeDraft)

	return r
}

func (s *Server) clients(w http.ResponseWriter, r *http.Request) {
	clients, err := s.storage.Clients(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	render.JSON(w, r, clients)
}

func (s *Server) categories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.storage.Categories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}

	render.JSON(w, r, categories)
}

func (s *Server) discounts(w http.ResponseWriter, r *http.Request) {
	discounts, err := s.storage.DiscountPackages(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	render.JSON(w, r, discounts)
}

func (s *Server) addresses(w http.ResponseWriter, r *http.Request) {
	addresses, err := s.storage.Addresses(r.Context(), chi.URLParam(r, "clientID"))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	render.JSON(w, r, addresses)
}

func (s *Server) confirmOrder(w http.ResponseWriter, r *http.Request) {
	var req gateway.ConfirmRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.reject(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}

	skus := make([]string, 0, len(req.OrderSummary))
	for _, item := range req.OrderSummary {
		skus = append(skus, item.ProductSKU)
	}

	products, err := s.storage.ProductsBySKU(r.Context(), skus)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var pkg *models.DiscountPackage
	if req.DiscountPackage != "" {
		pkg, err = s.storage.DiscountPackage(r.Context(), req.DiscountPackage)
		if err != nil && !errors.Is(err, storage.ErrNoDiscount) {
			s.fail(w, r, err)
			return
		}
	}

	confirmation, err := Price(req.OrderSummary, products, pkg)
	if errors.Is(err, ErrUnknownProduct) {
		s.reject(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	render.JSON(w, r, confirmation)
}

func (s *Server) createDraft(w http.ResponseWriter, r *http.Request) {
	var req gateway.SubmitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.reject(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}

	client, err := s.storage.Client(r.Context(), req.ClientID)
	if errors.Is(err, storage.ErrNoClient) {
		s.reject(w, r, http.StatusUnprocessableEntity, "unknown client")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	draft := &models.OrderDraft{
		ID:         uuid.NewString(),
		Client:     *client,
		Items:      req.OrderSummary,
		Shipping:   req.Shipping,
		DiscountID: req.DiscountPackage,
		CreatedAt:  time.Now().UTC(),
	}

	if err := s.storage.SaveDraft(r.Context(), draft); err != nil {
		s.fail(w, r, err)
		return
	}

	render.JSON(w, r, gateway.SubmitResult{OrderID: draft.ID})
}

func (s *Server) getDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := s.storage.GetDraft(r.Context(), chi.URLParam(r, "draftID"))
	if errors.Is(err, storage.ErrNoDraft) {
		s.reject(w, r, http.StatusNotFound, "draft not found")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	render.JSON(w, r, draft)
}

func (s *Server) finalizeDraft(w http.ResponseWriter, r *http.Request) {
	draftID := chi.URLParam(r, "draftID")

	if _, err := s.storage.GetDraft(r.Context(), draftID); err != nil {
		if errors.Is(err, storage.ErrNoDraft) {
			s.reject(w, r, http.StatusNotFound, "draft not found")
			return
		}
		s.fail(w, r, err)
		return
	}

	var req gateway.SubmitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.reject(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}

	result, err := s.placeOrder(r.Context(), draftID, req)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.storage.DeleteDraft(r.Context(), draftID); err != nil {
		s.log.Error("can't delete converted draft", slog.String("draft_id", draftID), sl.Err(err))
	}

	render.JSON(w, r, result)
}

func (s *Server) createOrder(w http.ResponseWriter, r *http.Request) {
	var req gateway.SubmitRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		s.reject(w, r, http.StatusBadRequest, "failed to decode request")
		return
	}

	result, err := s.placeOrder(r.Context(), "", req)
	if err != nil {
		if errors.Is(err, storage.ErrNoClient) {
			s.reject(w, r, http.StatusUnprocessableEntity, "unknown client")
			return
		}
		s.fail(w, r, err)
		return
	}

	render.JSON(w, r, result)
}

// placeOrder создает заказ. Уведомление шлюз создает только для клиентов
// с payment_type=1, для остальных notification_id в ответе отсутствует -
// клиентская сторона в этом случае добавляет параметр notification сама.
func (s *Server) placeOrder(ctx context.Context, draftID string, req gateway.SubmitRequest) (*gateway.SubmitResult, error) {
	client, err := s.storage.Client(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}

	result := &gateway.SubmitResult{OrderID: uuid.NewString()}
	if client.PaymentType == 1 {
		result.NotificationID = uuid.NewString()
	}

	err = s.storage.CreateOrder(ctx, result.OrderID, req.ClientID, draftID,
		req.DiscountPackage, result.NotificationID, req.OrderSummary, req.Shipping)
	if err != nil {
		return nil, err
	}

	return result, nil
}

func (s *Server) reject(w http.ResponseWriter, r *http.Request, status int, msg string) {
	render.Status(r, status)
	render.JSON(w, r, map[string]string{"message": msg})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.log.Error("emulator request failed", sl.Err(err))
	s.reject(w, r, http.StatusInternalServerError, "internal error")
}

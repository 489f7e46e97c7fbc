// Package checkout реализует финальный шаг оформления заказа: валидацию
// формы доставки, сохранение черновика и создание заказа через шлюз.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/comercio/order-session/internal/gateway"
	"github.com/comercio/order-session/internal/models"
	"github.com/comercio/order-session/internal/session"
	"github.com/comercio/order-session/lib/logger/sl"
	"github.com/go-playground/validator/v10"
)

var ErrUnknownAddress = errors.New("unknown address id")

// wrap оборачивает ошибку меткой вызова, пропуская бизнес-ошибки шлюза:
// их сообщение показывается пользователю как есть.
func wrap(fn string, err error) error {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return gwErr
	}

	return fmt.Errorf("%s: %v", fn, err)
}

// Form - форма доставки и выбора скидки. Валидация полностью локальная
// и синхронная: обязательные поля, формат email, ровно 10 цифр телефона,
// адрес не короче 5 символов, комментарий не длиннее 35.
//
// Либо выбран существующий адрес (AddressID), либо введен новый -
// тогда обязательны город и адрес.
type Form struct {
	AddressID  string `json:"address_id" validate:"required_without=Address"`
	Address    string `json:"address" validate:"required_without=AddressID,omitempty,min=5"`
	City       string `json:"city" validate:"required_without=AddressID"`
	Email      string `json:"email" validate:"required,email"`
	Indicative string `json:"indicative" validate:"required,number"`
	Phone      string `json:"phone" validate:"required,len=10,number"`
	Comments   string `json:"comments" validate:"max=35"`
	DiscountID string `json:"discount_id" validate:"required"`
}

// Result - итог отправки: идентификатор созданного черновика или заказа
// и адрес страницы, на которую должен перейти интерфейс.
type Result struct {
	OrderID        string `json:"id_order"`
	NotificationID string `json:"notification_id,omitempty"`
	RedirectURL    string `json:"redirect_url"`
}

// Gateway - порт шлюза, нужный оформлению заказа.
type Gateway interface {
	Addresses(ctx context.Context, clientID string) ([]models.Address, error)
	CreateDraft(ctx context.Context, req gateway.SubmitRequest) (*gateway.SubmitResult, error)
	ConvertDraft(ctx context.Context, draftID string, req gateway.SubmitRequest) (*gateway.SubmitResult, error)
	CreateOrder(ctx context.Context, req gateway.SubmitRequest) (*gateway.SubmitResult, error)
}

// EventPublisher публикует событие о созданном заказе или черновике.
type EventPublisher interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

type Service struct {
	gw       Gateway
	sessions *session.Manager
	events   EventPublisher
	validate *validator.Validate
	log      *slog.Logger
}

func New(gw Gateway, sessions *session.Manager, events EventPublisher, log *slog.Logger) *Service {
	return &Service{
		gw:       gw,
		sessions: sessions,
		events:   events,
		validate: validator.New(),
		log:      log,
	}
}

// SaveDraft сохраняет текущую сессию как черновик заказа.
// Сессия, продолжающая существующий черновик, сохранена быть не может:
// черновик нельзя зачерновиковать повторно.
func (s *Service) SaveDraft(ctx context.Context, sessionID string, form Form) (*Result, error) {
	const fn = "checkout.SaveDraft"

	sess, req, err := s.prepare(ctx, sessionID, form)
	if err != nil {
		return nil, err
	}

	if sess.Resuming() {
		return nil, session.ErrDraftResume
	}

	result, err := s.gw.CreateDraft(ctx, req)
	if err != nil {
		return nil, wrap(fn, err)
	}

	s.finish(ctx, sess, req, result, "draft")

	// После сохранения черновика интерфейс возвращается к списку заказов.
	return &Result{
		OrderID:        result.OrderID,
		NotificationID: result.NotificationID,
		RedirectURL:    "/comercio/pedidos",
	}, nil
}

// Finalize создает заказ. Для сессии, продолжающей черновик, используется
// эндпоинт конвертации черновика, иначе - прямое создание заказа.
func (s *Service) Finalize(ctx context.Context, sessionID string, form Form) (*Result, error) {
	const fn = "checkout.Finalize"

	sess, req, err := s.prepare(ctx, sessionID, form)
	if err != nil {
		return nil, err
	}

	var result *gateway.SubmitResult
	if sess.Resuming() {
		result, err = s.gw.ConvertDraft(ctx, sess.DraftID, req)
	} else {
		result, err = s.gw.CreateOrder(ctx, req)
	}
	if err != nil {
		return nil, wrap(fn, err)
	}

	s.finish(ctx, sess, req, result, "order")

	return &Result{
		OrderID:        result.OrderID,
		NotificationID: result.NotificationID,
		RedirectURL:    RedirectURL(result),
	}, nil
}

// RedirectURL строит адрес страницы подтверждения заказа. Параметр
// notification добавляется только если шлюз не создал собственного
// уведомления.
func RedirectURL(result *gateway.SubmitResult) string {
	url := "/comercio/pedidoConfirmado/" + result.OrderID
	if result.NotificationID == "" {
		url += "?notification=" + result.OrderID
	}

	return url
}

// prepare валидирует форму и собирает тело запроса к шлюзу из состояния
// сессии. Сессия при этом не отправляется: при ошибке шлюза она остается
// заполненной и пригодной для повторной попытки.
func (s *Service) prepare(ctx context.Context, sessionID string, form Form) (*session.Session, gateway.SubmitRequest, error) {
	var req gateway.SubmitRequest

	if err := s.validate.Struct(form); err != nil {
		return nil, req, err
	}

	sess, err := s.sessions.Mutate(ctx, sessionID, func(sess *session.Session) error {
		if sess.Phase != session.PhaseCheckingOut {
			return session.ErrInvalidTransition
		}

		return sess.SelectDiscount(form.DiscountID)
	})
	if err != nil {
		return nil, req, err
	}

	shipping, err := s.resolveShipping(ctx, sess.Client.ID, form)
	if err != nil {
		return nil, req, err
	}

	req = gateway.SubmitRequest{
		ClientID:        sess.Client.ID,
		DiscountPackage: form.DiscountID,
		OrderSummary:    sess.OrderSummary(),
		Shipping:        shipping,
	}

	return sess, req, nil
}

// resolveShipping собирает данные доставки. Для существующего адреса город
// и улица берутся из сохраненной записи, введенные значения игнорируются.
// Для нового адреса AddressID в платеже отсутствует.
func (s *Service) resolveShipping(ctx context.Context, clientID string, form Form) (models.ShippingInformation, error) {
	const fn = "checkout.resolveShipping"

	shipping := models.ShippingInformation{
		Address:    form.Address,
		City:       form.City,
		Email:      form.Email,
		Indicative: form.Indicative,
		Phone:      form.Phone,
		Comments:   form.Comments,
	}

	if form.AddressID == "" {
		return shipping, nil
	}

	addresses, err := s.gw.Addresses(ctx, clientID)
	if err != nil {
		return shipping, fmt.Errorf("%s: can't fetch addresses: %v", fn, err)
	}

	for _, address := range addresses {
		if address.ID == form.AddressID {
			shipping.AddressID = address.ID
			shipping.Address = address.Address
			shipping.City = address.City

			return shipping, nil
		}
	}

	return shipping, ErrUnknownAddress
}

// finish помечает сессию отправленной, публикует событие заказа и удаляет
// сессию. Ошибки на этом пути не отменяют уже созданный заказ: они только
// логируются.
func (s *Service) finish(ctx context.Context, sess *session.Session, req gateway.SubmitRequest, result *gateway.SubmitResult, kind string) {
	if _, err := s.sessions.Mutate(ctx, sess.ID, func(sess *session.Session) error {
		return sess.MarkSubmitted()
	}); err != nil {
		s.log.Error("can't mark session submitted", slog.String("session_id", sess.ID), sl.Err(err))
	}

	event := models.OrderEvent{
		OrderID:    result.OrderID,
		SessionID:  sess.ID,
		ClientID:   sess.Client.ID,
		DraftID:    sess.DraftID,
		Kind:       kind,
		Items:      req.OrderSummary,
		Shipping:   req.Shipping,
		DiscountID: req.DiscountPackage,
		CreatedAt:  time.Now().UTC(),
	}
	if sess.Confirmation != nil {
		event.Total = sess.Confirmation.Total
	}

	if s.events != nil {
		if err := s.events.PublishOrderEvent(ctx, event); err != nil {
			s.log.Error("can't publish order event", slog.String("order_id", result.OrderID), sl.Err(err))
		}
	}

	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		s.log.Error("can't delete session", slog.String("session_id", sess.ID), sl.Err(err))
	}
}

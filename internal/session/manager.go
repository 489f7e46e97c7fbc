package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/comercio/order-session/internal/gateway"
	"github.com/comercio/order-session/internal/models"
	"github.com/comercio/order-session/internal/storage"
	"github.com/comercio/order-session/lib/logger/sl"
	"github.com/google/uuid"
)

// Gateway - порт коммерческого шлюза, нужный менеджеру сессий.
type Gateway interface {
	Clients(ctx context.Context) ([]models.Client, error)
	Categories(ctx context.Context) ([]models.Category, error)
	DiscountPackages(ctx context.Context, clientID string) ([]models.DiscountPackage, error)
	ConfirmOrder(ctx context.Context, req gateway.ConfirmRequest) (*models.OrderConfirmation, error)
	Draft(ctx context.Context, draftID string) (*models.OrderDraft, error)
}

// Store - хранилище снапшотов сессий.
type Store interface {
	SaveSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
}

// Manager владеет сессиями заказов: выдает их, сериализует мутации
// каждой сессии и управляет ее резолвером подтверждения цены.
type Manager struct {
	gw     Gateway
	store  Store
	window time.Duration
	log    *slog.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// entry сериализует доступ к одной сессии: все мутации проходят через
// load-modify-save под ее мьютексом, конкурентных писателей нет.
type entry struct {
	mu       sync.Mutex
	resolver *resolver
}

func NewManager(gw Gateway, store Store, window time.Duration, log *slog.Logger) *Manager {
	return &Manager{
		gw:      gw,
		store:   store,
		window:  window,
		log:     log,
		entries: make(map[string]*entry),
	}
}

// Start создает новую сессию заказа с загруженным каталогом.
func (m *Manager) Start(ctx context.Context) (*Session, error) {
	const fn = "session.Start"

	categories, err := m.gw.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: can't fetch catalog: %v", fn, err)
	}

	s := New(uuid.NewString())
	s.Categories = categories

	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("%s: can't save session: %v", fn, err)
	}

	return s, nil
}

// Resume создает сессию из сохраненного черновика: клиент, выбранные
// позиции и данные доставки восстанавливаются, после чего сессия сразу
// переходит к оформлению.
func (m *Manager) Resume(ctx context.Context, draftID string) (*Session, error) {
	const fn = "session.Resume"

	draft, err := m.gw.Draft(ctx, draftID)
	if err != nil {
		return nil, fmt.Errorf("%s: can't fetch draft: %v", fn, err)
	}

	categories, err := m.gw.Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: can't fetch catalog: %v", fn, err)
	}

	s := New(uuid.NewString())
	s.Phase = PhaseResumingDraft
	s.DraftID = draft.ID
	s.Categories = categories
	s.SetClient(draft.Client)

	for _, item := range draft.Items {
		if err := s.SetQuantity(item.ProductSKU, item.Quantity); err != nil {
			return nil, fmt.Errorf("%s: can't restore item %s: %v", fn, item.ProductSKU, err)
		}
	}

	shipping := draft.Shipping
	s.Shipping = &shipping

	m.loadDiscounts(ctx, s)

	if draft.DiscountID != "" {
		if err := s.SelectDiscount(draft.DiscountID); err != nil {
			m.log.Warn("draft discount is not available anymore",
				slog.String("draft_id", draft.ID),
				slog.String("discount_id", draft.DiscountID),
			)
		}
	}

	s.Phase = PhaseCheckingOut
	s.touch()

	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("%s: can't save session: %v", fn, err)
	}

	m.poke(s)

	return s, nil
}

// Get возвращает текущий снапшот сессии.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	return m.store.GetSession(ctx, id)
}

// SelectClient фиксирует клиента сессии и подтягивает доступные ему
// пакеты скидок, выбирая первый по умолчанию.
func (m *Manager) SelectClient(ctx context.Context, id, clientID string) (*Session, error) {
	const fn = "session.SelectClient"

	clients, err := m.gw.Clients(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: can't fetch clients: %v", fn, err)
	}

	var client *models.Client
	for i := range clients {
		if clients[i].ID == clientID {
			client = &clients[i]
			break
		}
	}
	if client == nil {
		return nil, storage.ErrNoClient
	}

	return m.update(ctx, id, func(s *Session) error {
		s.SetClient(*client)
		m.loadDiscounts(ctx, s)

		return nil
	})
}

// SetQuantity изменяет количество товара и планирует пересчет цены.
func (m *Manager) SetQuantity(ctx context.Context, id, sku string, quantity int) (*Session, error) {
	return m.update(ctx, id, func(s *Session) error {
		return s.SetQuantity(sku, quantity)
	})
}

// SelectDiscount выбирает пакет скидок и планирует пересчет цены.
func (m *Manager) SelectDiscount(ctx context.Context, id, discountID string) (*Session, error) {
	return m.update(ctx, id, func(s *Session) error {
		return s.SelectDiscount(discountID)
	})
}

// BeginCheckout переводит сессию к оформлению.
func (m *Manager) BeginCheckout(ctx context.Context, id string) (*Session, error) {
	return m.update(ctx, id, func(s *Session) error {
		return s.BeginCheckout()
	})
}

// BackToBrowsing возвращает сессию к каталогу.
func (m *Manager) BackToBrowsing(ctx context.Context, id string) (*Session, error) {
	return m.update(ctx, id, func(s *Session) error {
		return s.BackToBrowsing()
	})
}

// Mutate выполняет произвольную мутацию сессии под ее мьютексом.
// Используется сервисом оформления заказа.
func (m *Manager) Mutate(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	e := m.entry(id)

	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := m.store.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := fn(s); err != nil {
		return nil, err
	}

	if err := m.store.SaveSession(ctx, s); err != nil {
		return nil, fmt.Errorf("can't save session: %v", err)
	}

	return s, nil
}

// Delete удаляет сессию и останавливает ее резолвер.
// Вызывается после успешной отправки заказа.
func (m *Manager) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	if e, ok := m.entries[id]; ok {
		if e.resolver != nil {
			e.resolver.Stop()
		}
		delete(m.entries, id)
	}
	m.mu.Unlock()

	return m.store.DeleteSession(ctx, id)
}

// update - общий путь мутации: load-modify-save под мьютексом сессии,
// затем планирование пересчета цены для нового состояния корзины.
func (m *Manager) update(ctx context.Context, id string, fn func(*Session) error) (*Session, error) {
	s, err := m.Mutate(ctx, id, fn)
	if err != nil {
		return nil, err
	}

	m.poke(s)

	return s, nil
}

// poke передает резолверу снапшот корзины. Пока в корзине нет позиций,
// подтверждать нечего.
func (m *Manager) poke(s *Session) {
	summary := s.OrderSummary()
	if len(summary) == 0 {
		return
	}

	e := m.entry(s.ID)

	e.mu.Lock()
	if e.resolver == nil {
		e.resolver = newResolver(m.window, m.gw.ConfirmOrder, m.applyFunc(s.ID))
	}
	resolver := e.resolver
	e.mu.Unlock()

	resolver.Poke(gateway.ConfirmRequest{
		DiscountPackage: s.SelectedDiscount,
		OrderSummary:    summary,
	})
}

// applyFunc возвращает колбек, записывающий результат подтверждения
// в сессию. При ошибке фонового запроса предыдущие тотали сохраняются,
// но помечаются устаревшими - интерфейс не блокируется.
func (m *Manager) applyFunc(id string) ApplyFunc {
	return func(seq uint64, confirmation *models.OrderConfirmation, err error) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		_, updateErr := m.Mutate(ctx, id, func(s *Session) error {
			if err != nil {
				s.MarkConfirmationStale()
				m.log.Error("confirm order failed", slog.String("session_id", id), sl.Err(err))

				return nil
			}

			s.ApplyConfirmation(seq, confirmation)

			return nil
		})
		if updateErr != nil {
			m.log.Error("can't apply confirmation", slog.String("session_id", id), sl.Err(updateErr))
		}
	}
}

// loadDiscounts подтягивает пакеты скидок выбранного клиента.
// Ошибка не прерывает работу сессии: скидки просто остаются пустыми.
func (m *Manager) loadDiscounts(ctx context.Context, s *Session) {
	s.DiscountsLoading = true

	discounts, err := m.gw.DiscountPackages(ctx, s.Client.ID)
	if err != nil {
		s.DiscountsLoading = false
		m.log.Error("can't fetch discount packages",
			slog.String("client_id", s.Client.ID), sl.Err(err))

		return
	}

	s.SetDiscounts(discounts)
}

func (m *Manager) entry(id string) *entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[id]
	if !ok {
		e = &entry{}
		m.entries[id] = e
	}

	return e
}

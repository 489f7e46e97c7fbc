// Package session содержит состояние незавершенного заказа и правила его
// изменения: выбор клиента, корзину, дебаунс запроса подтверждения цены
// и явный конечный автомат фаз оформления.
package session

import (
	"errors"
	"time"

	"github.com/comercio/order-session/internal/models"
)

// Phase - явная фаза сессии заказа. Переходы выполняются только через
// методы Session, недопустимый переход возвращает ErrInvalidTransition.
type Phase string

const (
	PhaseBrowsing      Phase = "browsing"
	PhaseCheckingOut   Phase = "checking_out"
	PhaseResumingDraft Phase = "resuming_draft"
	PhaseSubmitted     Phase = "submitted"
)

var (
	ErrInvalidTransition = errors.New("invalid phase transition")
	ErrNegativeQuantity  = errors.New("quantity must be non-negative")
	ErrUnknownProduct    = errors.New("unknown product sku")
	ErrUnknownDiscount   = errors.New("unknown discount package")
	ErrNoClient          = errors.New("client is not selected")
	ErrNoItems           = errors.New("no products selected")
	ErrDraftResume       = errors.New("a resumed draft can't be saved as a draft again")
)

// Session - единственный источник правды о незавершенном заказе.
// Снапшот сессии сериализуется в JSON и хранится в Redis между запросами.
type Session struct {
	ID    string `json:"id"`
	Phase Phase  `json:"phase"`

	// DraftID не пуст тогда и только тогда, когда сессия продолжает
	// сохраненный черновик. Его наличие меняет эндпоинт финализации
	// и запрещает повторное сохранение черновика.
	DraftID string `json:"draft_id,omitempty"`

	Client             *models.Client              `json:"client,omitempty"`
	Categories         []models.Category           `json:"categories"`
	SelectedCategories []models.Category           `json:"selected_categories"`
	Discounts          []models.DiscountPackage    `json:"discounts"`
	SelectedDiscount   string                      `json:"selected_discount,omitempty"`
	DiscountsLoading   bool                        `json:"discounts_loading"`
	Confirmation       *models.OrderConfirmation   `json:"confirmation,omitempty"`
	Shipping           *models.ShippingInformation `json:"shipping,omitempty"`

	// ConfirmSeq - номер последнего принятого подтверждения цены.
	// Ответы с меньшим номером отбрасываются как устаревшие.
	ConfirmSeq uint64 `json:"confirm_seq"`

	UpdatedAt time.Time `json:"updated_at"`
}

func New(id string) *Session {
	return &Session{
		ID:        id,
		Phase:     PhaseBrowsing,
		UpdatedAt: time.Now().UTC(),
	}
}

// SetClient фиксирует клиента сессии. Клиент выбирается один раз:
// смена клиента сбрасывает выбор скидок, так как пакеты скидок
// привязаны к клиенту.
func (s *Session) SetClient(client models.Client) {
	s.Client = &client
	s.Discounts = nil
	s.SelectedDiscount = ""
	s.touch()
}

// SetDiscounts сохраняет доступные пакеты скидок и по умолчанию
// выбирает первый из них.
func (s *Session) SetDiscounts(discounts []models.DiscountPackage) {
	s.Discounts = discounts
	s.DiscountsLoading = false

	if len(discounts) > 0 {
		s.SelectedDiscount = discounts[0].ID
	} else {
		s.SelectedDiscount = ""
	}

	s.invalidateConfirmation()
}

// SelectDiscount выбирает один из доступных пакетов скидок.
func (s *Session) SelectDiscount(id string) error {
	for _, d := range s.Discounts {
		if d.ID == id {
			s.SelectedDiscount = id
			s.invalidateConfirmation()

			return nil
		}
	}

	return ErrUnknownDiscount
}

// SetQuantity изменяет количество товара в каталоге и поддерживает
// производный список выбранных категорий: товары с нулевым количеством
// исключаются из него, но остаются в полном каталоге.
func (s *Session) SetQuantity(sku string, quantity int) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}

	product, ok := s.findProduct(sku)
	if !ok {
		return ErrUnknownProduct
	}

	product.Quantity = quantity
	s.updateSelection(*product)
	s.invalidateConfirmation()

	return nil
}

// OrderSummary возвращает плоский список выбранных позиций {sku, количество}
// в том виде, в котором его ожидает шлюз.
func (s *Session) OrderSummary() []models.OrderSummaryItem {
	var summary []models.OrderSummaryItem

	for _, category := range s.SelectedCategories {
		for _, product := range category.Products {
			summary = append(summary, models.OrderSummaryItem{
				ProductSKU: product.SKU,
				Quantity:   product.Quantity,
			})
		}
	}

	return summary
}

// ApplyConfirmation принимает подтверждение цены от шлюза и помечает
// товары, которых не хватает на складе, в обоих списках.
// Ответы с номером меньше уже принятого отбрасываются.
func (s *Session) ApplyConfirmation(seq uint64, confirmation *models.OrderConfirmation) bool {
	if seq < s.ConfirmSeq {
		return false
	}

	s.ConfirmSeq = seq
	s.Confirmation = confirmation
	s.applyStockFeedback(confirmation.InsufficientStockProducts)
	s.touch()

	return true
}

// MarkConfirmationStale помечает текущее подтверждение устаревшим.
// Вызывается при ошибке фонового запроса: тотали остаются на экране,
// но API сигнализирует, что они могут не соответствовать корзине.
func (s *Session) MarkConfirmationStale() {
	if s.Confirmation != nil {
		s.Confirmation.Stale = true
	}
	s.touch()
}

// BeginCheckout переводит сессию из просмотра каталога в оформление.
func (s *Session) BeginCheckout() error {
	if s.Phase != PhaseBrowsing {
		return ErrInvalidTransition
	}
	if s.Client == nil {
		return ErrNoClient
	}
	if len(s.SelectedCategories) == 0 {
		return ErrNoItems
	}

	s.Phase = PhaseCheckingOut
	s.touch()

	return nil
}

// BackToBrowsing возвращает сессию из оформления к каталогу.
func (s *Session) BackToBrowsing() error {
	if s.Phase != PhaseCheckingOut {
		return ErrInvalidTransition
	}

	s.Phase = PhaseBrowsing
	s.touch()

	return nil
}

// MarkSubmitted - терминальный переход после успешного создания
// черновика или заказа.
func (s *Session) MarkSubmitted() error {
	if s.Phase != PhaseCheckingOut {
		return ErrInvalidTransition
	}

	s.Phase = PhaseSubmitted
	s.touch()

	return nil
}

// Resuming сообщает, продолжает ли сессия сохраненный черновик.
func (s *Session) Resuming() bool {
	return s.DraftID != ""
}

func (s *Session) findProduct(sku string) (*models.Product, bool) {
	for i := range s.Categories {
		for j := range s.Categories[i].Products {
			if s.Categories[i].Products[j].SKU == sku {
				return &s.Categories[i].Products[j], true
			}
		}
	}

	return nil, false
}

// updateSelection вставляет, обновляет или удаляет позицию в списке
// выбранных категорий, сохраняя группировку по категории.
func (s *Session) updateSelection(product models.Product) {
	for i := range s.SelectedCategories {
		category := &s.SelectedCategories[i]
		if category.CategoryID != product.CategoryID {
			continue
		}

		for j := range category.Products {
			if category.Products[j].SKU != product.SKU {
				continue
			}

			if product.Quantity == 0 {
				category.Products = append(category.Products[:j], category.Products[j+1:]...)

				if len(category.Products) == 0 {
					s.SelectedCategories = append(s.SelectedCategories[:i], s.SelectedCategories[i+1:]...)
				}
			} else {
				category.Products[j] = product
			}

			return
		}

		if product.Quantity > 0 {
			category.Products = append(category.Products, product)
		}

		return
	}

	if product.Quantity == 0 {
		return
	}

	name := ""
	for _, category := range s.Categories {
		if category.CategoryID == product.CategoryID {
			name = category.CategoryName
			break
		}
	}

	s.SelectedCategories = append(s.SelectedCategories, models.Category{
		CategoryID:   product.CategoryID,
		CategoryName: name,
		Products:     []models.Product{product},
	})
}

// applyStockFeedback сбрасывает флаг наличия только у товаров из списка
// insufficient_stock_products, во всех местах, где встречается их SKU.
func (s *Session) applyStockFeedback(skus []string) {
	if len(skus) == 0 {
		return
	}

	missing := make(map[string]struct{}, len(skus))
	for _, sku := range skus {
		missing[sku] = struct{}{}
	}

	flag := func(categories []models.Category) {
		for i := range categories {
			for j := range categories[i].Products {
				if _, ok := missing[categories[i].Products[j].SKU]; ok {
					categories[i].Products[j].Stock = false
				}
			}
		}
	}

	flag(s.Categories)
	flag(s.SelectedCategories)
}

// invalidateConfirmation помечает подтверждение устаревшим после любого
// изменения корзины или скидки. Новое подтверждение запрашивает резолвер.
func (s *Session) invalidateConfirmation() {
	if s.Confirmation != nil {
		s.Confirmation.Stale = true
	}
	s.touch()
}

func (s *Session) touch() {
	s.UpdatedAt = time.Now().UTC()
}

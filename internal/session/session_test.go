package session

import (
	"testing"

	"github.com/comercio/order-session/internal/models"
	"github.com/stretchr/testify/require"
)

func testCatalog() []models.Category {
	return []models.Category{
		{
			CategoryID:   1,
			CategoryName: "Ferretería",
			Products: []models.Product{
				{ID: "p1", SKU: "SKU-1", Name: "Martillo", Price: 10000, PriceWithTax: 11900, DiscountPercentage: 10, CategoryID: 1, Stock: true},
				{ID: "p2", SKU: "SKU-2", Name: "Destornillador", Price: 5000, PriceWithTax: 5950, CategoryID: 1, Stock: true},
			},
		},
		{
			CategoryID:   2,
			CategoryName: "Pinturas",
			Products: []models.Product{
				{ID: "p3", SKU: "SKU-3", Name: "Vinilo blanco", Price: 42000, PriceWithTax: 49980, CategoryID: 2, Stock: true},
			},
		},
	}
}

func newTestSession() *Session {
	s := New("test-session")
	s.Categories = testCatalog()

	return s
}

func TestSetQuantityMaintainsSelection(t *testing.T) {
	s := newTestSession()

	require.NoError(t, s.SetQuantity("SKU-1", 2))
	require.NoError(t, s.SetQuantity("SKU-3", 1))

	require.Len(t, s.SelectedCategories, 2)
	require.Equal(t, "Ferretería", s.SelectedCategories[0].CategoryName)
	require.Equal(t, 2, s.SelectedCategories[0].Products[0].Quantity)

	// Повторная установка количества обновляет позицию, а не дублирует ее.
	require.NoError(t, s.SetQuantity("SKU-1", 5))
	require.Len(t, s.SelectedCategories[0].Products, 1)
	require.Equal(t, 5, s.SelectedCategories[0].Products[0].Quantity)

	// Нулевое количество убирает позицию, а с ней и опустевшую категорию.
	require.NoError(t, s.SetQuantity("SKU-1", 0))
	require.Len(t, s.SelectedCategories, 1)
	require.Equal(t, 2, s.SelectedCategories[0].CategoryID)

	// Полный каталог при этом не меняется.
	require.Len(t, s.Categories, 2)
	require.Len(t, s.Categories[0].Products, 2)
}

func TestSetQuantityErrors(t *testing.T) {
	s := newTestSession()

	require.ErrorIs(t, s.SetQuantity("SKU-1", -1), ErrNegativeQuantity)
	require.ErrorIs(t, s.SetQuantity("NO-SUCH-SKU", 1), ErrUnknownProduct)
	require.Empty(t, s.SelectedCategories)
}

func TestOrderSummary(t *testing.T) {
	s := newTestSession()

	require.Empty(t, s.OrderSummary())

	require.NoError(t, s.SetQuantity("SKU-2", 3))
	require.NoError(t, s.SetQuantity("SKU-3", 1))

	summary := s.OrderSummary()
	require.Equal(t, []models.OrderSummaryItem{
		{ProductSKU: "SKU-2", Quantity: 3},
		{ProductSKU: "SKU-3", Quantity: 1},
	}, summary)
}

func TestSelectDiscount(t *testing.T) {
	s := newTestSession()

	s.SetDiscounts([]models.DiscountPackage{
		{ID: "d1", Name: "Básico"},
		{ID: "d2", IDAnnualDiscount: "annual", Name: "Anual"},
	})

	// Первый пакет выбран по умолчанию.
	require.Equal(t, "d1", s.SelectedDiscount)

	require.NoError(t, s.SelectDiscount("d2"))
	require.Equal(t, "d2", s.SelectedDiscount)

	require.ErrorIs(t, s.SelectDiscount("no-such"), ErrUnknownDiscount)
	require.Equal(t, "d2", s.SelectedDiscount)
}

func TestSetClientResetsDiscounts(t *testing.T) {
	s := newTestSession()
	s.SetDiscounts([]models.DiscountPackage{{ID: "d1", Name: "Básico"}})

	s.SetClient(models.Client{ID: "c2", Name: "Otro"})

	require.Nil(t, s.Discounts)
	require.Empty(t, s.SelectedDiscount)
}

func TestApplyConfirmationSeqGuard(t *testing.T) {
	s := newTestSession()

	require.True(t, s.ApplyConfirmation(2, &models.OrderConfirmation{Total: 200}))
	require.Equal(t, int64(200), s.Confirmation.Total)

	// Ответ с меньшим номером устарел и отбрасывается.
	require.False(t, s.ApplyConfirmation(1, &models.OrderConfirmation{Total: 100}))
	require.Equal(t, int64(200), s.Confirmation.Total)
	require.Equal(t, uint64(2), s.ConfirmSeq)
}

func TestApplyConfirmationFlagsInsufficientStock(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.SetQuantity("SKU-1", 2))
	require.NoError(t, s.SetQuantity("SKU-2", 1))

	s.ApplyConfirmation(1, &models.OrderConfirmation{
		Total:                     100,
		InsufficientStockProducts: []string{"SKU-1"},
	})

	// Флаг сброшен в обоих списках и только у перечисленных SKU.
	require.False(t, s.Categories[0].Products[0].Stock)
	require.False(t, s.SelectedCategories[0].Products[0].Stock)
	require.True(t, s.Categories[0].Products[1].Stock)
	require.True(t, s.SelectedCategories[0].Products[1].Stock)
}

func TestCartChangeMarksConfirmationStale(t *testing.T) {
	s := newTestSession()
	require.NoError(t, s.SetQuantity("SKU-1", 1))

	s.ApplyConfirmation(1, &models.OrderConfirmation{Total: 100})
	require.False(t, s.Confirmation.Stale)

	require.NoError(t, s.SetQuantity("SKU-1", 2))
	require.True(t, s.Confirmation.Stale)

	// Новое подтверждение снимает флаг.
	s.ApplyConfirmation(2, &models.OrderConfirmation{Total: 200})
	require.False(t, s.Confirmation.Stale)
}

func TestPhaseTransitions(t *testing.T) {
	s := newTestSession()

	// Без клиента и позиций в оформление не попасть.
	require.ErrorIs(t, s.BeginCheckout(), ErrNoClient)

	s.SetClient(models.Client{ID: "c1", Name: "Cliente"})
	require.ErrorIs(t, s.BeginCheckout(), ErrNoItems)

	require.NoError(t, s.SetQuantity("SKU-1", 1))
	require.NoError(t, s.BeginCheckout())
	require.Equal(t, PhaseCheckingOut, s.Phase)

	// Повторный вход в оформление невозможен.
	require.ErrorIs(t, s.BeginCheckout(), ErrInvalidTransition)

	require.NoError(t, s.BackToBrowsing())
	require.Equal(t, PhaseBrowsing, s.Phase)
	require.ErrorIs(t, s.BackToBrowsing(), ErrInvalidTransition)

	// Отправка возможна только из оформления.
	require.ErrorIs(t, s.MarkSubmitted(), ErrInvalidTransition)

	require.NoError(t, s.BeginCheckout())
	require.NoError(t, s.MarkSubmitted())
	require.Equal(t, PhaseSubmitted, s.Phase)
}

func TestResuming(t *testing.T) {
	s := newTestSession()
	require.False(t, s.Resuming())

	s.DraftID = "draft-1"
	require.True(t, s.Resuming())
}

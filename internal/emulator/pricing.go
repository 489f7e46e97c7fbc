// Package emulator - локальная замена коммерческого шлюза для разработки
// и интеграционных тестов. Реализует те же REST-эндпоинты и детерминированный
// расчет цены; настоящий ценовой движок остается на стороне продакшн-шлюза.
package emulator

import (
	"errors"
	"fmt"

	"github.com/comercio/order-session/internal/models"
	"github.com/comercio/order-session/internal/storage/postgres"
)

var ErrUnknownProduct = errors.New("unknown product sku")

const (
	taxRatePercent            = 19
	earlyPaymentRebatePercent = 5
)

// Price считает подтверждение заказа: подытог, скидки по выбранному пакету,
// налог и тотал с ранней оплатой. Позиции, запрошенные сверх остатка,
// попадают в insufficient_stock_products, но заказ все равно рассчитывается.
func Price(items []models.OrderSummaryItem, products map[string]postgres.PricedProduct, pkg *models.DiscountPackage) (*models.OrderConfirmation, error) {
	confirmation := &models.OrderConfirmation{}

	for _, item := range items {
		product, ok := products[item.ProductSKU]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, item.ProductSKU)
		}

		line := int64(item.Quantity) * product.Price
		confirmation.Subtotal += line

		if pkg != nil && product.DiscountPercentage > 0 {
			amount := line * int64(product.DiscountPercentage) / 100
			if amount > 0 {
				confirmation.Discounts.TotalDiscount += amount
				confirmation.Discounts.DiscountItems = append(confirmation.Discounts.DiscountItems, models.DiscountItem{
					ProductSKU: item.ProductSKU,
					Amount:     amount,
				})
			}
		}

		if item.Quantity > product.StockQuantity {
			confirmation.InsufficientStockProducts = append(confirmation.InsufficientStockProducts, item.ProductSKU)
		}
	}

	discounted := confirmation.Subtotal - confirmation.Discounts.TotalDiscount
	confirmation.Taxes = discounted * taxRatePercent / 100
	confirmation.Total = discounted + confirmation.Taxes

	confirmation.TotalWithEarlyPaymentDiscount = confirmation.Total
	if pkg != nil && pkg.IDAnnualDiscount != "" {
		confirmation.TotalWithEarlyPaymentDiscount = confirmation.Total * (100 - earlyPaymentRebatePercent) / 100
	}

	return confirmation, nil
}

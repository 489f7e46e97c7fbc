package postgres

import (
	"context"
	"fmt"

	"github.com/comercio/order-session/internal/models"
)

// SeedData - стартовый набор данных эмулятора.
type SeedData struct {
	Clients    []models.Client
	Categories []models.Category
	// Discounts и Addresses сгруппированы по идентификатору клиента.
	Discounts map[string][]models.DiscountPackage
	Addresses map[string][]models.Address
	// StockQuantities - доступный остаток по SKU.
	StockQuantities map[string]int
}

// Seed наполняет пустую базу эмулятора сгенерированными данными.
// Вызывается один раз при старте, когда таблица клиентов пуста.
func (s *Storage) Seed(ctx context.Context, data SeedData) error {
	const fn = "storage.postgres.Seed"

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: can't begin transaction: %v", fn, err)
	}
	defer tx.Rollback()

	for _, client := range data.Clients {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO clients (id, name, email, payment_type) VALUES ($1, $2, $3, $4)",
			client.ID, client.Name, client.Email, client.PaymentType)
		if err != nil {
			return fmt.Errorf("%s: can't insert client: %v", fn, err)
		}

		for _, d := range data.Discounts[client.ID] {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO discount_packages (id, client_id, id_annual_discount, name) VALUES ($1, $2, $3, $4)",
				d.ID, client.ID, d.IDAnnualDiscount, d.Name)
			if err != nil {
				return fmt.Errorf("%s: can't insert discount package: %v", fn, err)
			}
		}

		for _, a := range data.Addresses[client.ID] {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO addresses (id, client_id, address, city) VALUES ($1, $2, $3, $4)",
				a.ID, client.ID, a.Address, a.City)
			if err != nil {
				return fmt.Errorf("%s: can't insert address: %v", fn, err)
			}
		}
	}

	for _, category := range data.Categories {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO categories (id, name) VALUES ($1, $2)",
			category.CategoryID, category.CategoryName)
		if err != nil {
			return fmt.Errorf("%s: can't insert category: %v", fn, err)
		}

		for _, p := range category.Products {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO products (id, sku, name, price, price_with_tax, discount_percentage, category_id, stock_quantity)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				p.ID, p.SKU, p.Name, p.Price, p.PriceWithTax, p.DiscountPercentage, p.CategoryID, data.StockQuantities[p.SKU])
			if err != nil {
				return fmt.Errorf("%s: can't insert product: %v", fn, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: can't commit transaction: %v", fn, err)
	}

	return nil
}

// Package catalogGen генерирует случайные, но структурно валидные данные
// для эмулятора шлюза: клиентов, каталог товаров, пакеты скидок и адреса.
// Для создания фейковых данных используется библиотека `gofakeit`.
package catalogGen

import (
	"fmt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/comercio/order-session/internal/models"
	"github.com/comercio/order-session/internal/storage/postgres"
)

// Предопределенные срезы строк для выбора случайных значений.
// Это делает сгенерированные данные более похожими на настоящие.
var (
	categoryNames = []string{"Bebidas", "Lácteos", "Aseo", "Snacks", "Granos"}
	packageNames  = []string{"Plan Anual", "Pronto Pago", "Volumen Mayorista", "Cliente Frecuente"}
	cities        = []string{"Bogotá", "Medellín", "Cali", "Barranquilla", "Bucaramanga"}
)

const (
	clientsCount        = 8
	productsPerCategory = 6
)

// GenerateSeed создает стартовый набор данных эмулятора: клиентов с их
// пакетами скидок и адресами и каталог товаров с остатками. Часть товаров
// намеренно получает нулевой остаток, чтобы проверка наличия срабатывала.
func GenerateSeed() postgres.SeedData {
	data := postgres.SeedData{
		Discounts:       make(map[string][]models.DiscountPackage),
		Addresses:       make(map[string][]models.Address),
		StockQuantities: make(map[string]int),
	}

	for i := 0; i < clientsCount; i++ {
		client := models.Client{
			ID:          gofakeit.UUID(),
			Name:        gofakeit.Company(),
			Email:       gofakeit.Email(),
			PaymentType: gofakeit.Number(0, 1),
		}
		data.Clients = append(data.Clients, client)

		// От 1 до 3 пакетов скидок на клиента.
		packagesCount := gofakeit.Number(1, 3)
		for i := 0; i < packagesCount; i++ {
			pkg := models.DiscountPackage{
				ID:   gofakeit.UUID(),
				Name: gofakeit.RandomString(packageNames),
			}
			// Примерно у половины пакетов есть годовая скидка,
			// дающая тотал с ранней оплатой.
			if gofakeit.Bool() {
				pkg.IDAnnualDiscount = gofakeit.UUID()
			}
			data.Discounts[client.ID] = append(data.Discounts[client.ID], pkg)
		}

		addressesCount := gofakeit.Number(0, 2)
		for i := 0; i < addressesCount; i++ {
			data.Addresses[client.ID] = append(data.Addresses[client.ID], models.Address{
				ID:      gofakeit.UUID(),
				Address: gofakeit.Street(),
				City:    gofakeit.RandomString(cities),
			})
		}
	}

	for i, name := range categoryNames {
		category := models.Category{
			CategoryID:   i + 1,
			CategoryName: name,
		}

		for j := 0; j < productsPerCategory; j++ {
			product := generateProduct(category.CategoryID)
			category.Products = append(category.Products, product)

			// Каждый десятый товар без остатка.
			if gofakeit.Number(0, 9) == 0 {
				data.StockQuantities[product.SKU] = 0
			} else {
				data.StockQuantities[product.SKU] = gofakeit.Number(1, 50)
			}
		}

		data.Categories = append(data.Categories, category)
	}

	return data
}

// generateProduct создает один случайный товар. Цены хранятся в центах,
// цена с налогом считается по ставке НДС 19%.
func generateProduct(categoryID int) models.Product {
	price := int64(gofakeit.Number(100_00, 900_00))

	return models.Product{
		ID:                 gofakeit.UUID(),
		SKU:                fmt.Sprintf("%s%s", gofakeit.LetterN(3), gofakeit.DigitN(5)),
		Name:               gofakeit.ProductName(),
		Price:              price,
		PriceWithTax:       price * 119 / 100,
		DiscountPercentage: gofakeit.Number(0, 15),
		CategoryID:         categoryID,
	}
}

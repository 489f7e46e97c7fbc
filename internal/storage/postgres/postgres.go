// Package postgres реализует хранилище данных эмулятора шлюза
// (клиенты, каталог, скидки, адреса, черновики, заказы) и архив
// событий заказов для консьюмера.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/comercio/order-session/internal/config"
	"github.com/comercio/order-session/internal/models"
	"github.com/comercio/order-session/internal/storage"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Storage struct {
	db *sqlx.DB
}

var qb = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

func New(cfg config.Postgres, log *slog.Logger) (*Storage, error) {
	const fn = "storage.postgres.New"
	log = log.With("fn", fn)

	log.Info("starting storage initialization...")

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		cfg.Username,
		cfg.Password,
		cfg.Host,
		cfg.Port,
		cfg.Database,
	)

	// open database
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("%s: can't open database: %v", fn, err)
	}

	// check if we can connect to database
	if err = db.Ping(); err != nil {
		return nil, fmt.Errorf("%s: can't connect to database: %v", fn, err)
	}

	return &Storage{db: db}, nil
}

func (s *Storage) Clients(ctx context.Context) ([]models.Client, error) {
	const fn = "storage.postgres.Clients"

	query, args, err := qb.
		Select("id", "name", "email", "payment_type").
		From("clients").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var clients []models.Client

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: can't select clients: %v", fn, err)
	}
	defer rows.Close()

	for rows.Next() {
		var c models.Client
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.PaymentType); err != nil {
			return nil, fmt.Errorf("%s: can't scan client: %v", fn, err)
		}
		clients = append(clients, c)
	}

	return clients, rows.Err()
}

// Client возвращает клиента по идентификатору.
func (s *Storage) Client(ctx context.Context, id string) (*models.Client, error) {
	const fn = "storage.postgres.Client"

	query, args, err := qb.
		Select("id", "name", "email", "payment_type").
		From("clients").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var c models.Client

	row := s.db.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.PaymentType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNoClient
		}

		return nil, fmt.Errorf("%s: can't scan client: %v", fn, err)
	}

	return &c, nil
}

// Categories возвращает каталог целиком: категории с товарами.
// Quantity у товаров каталога всегда 0 - количество живет в сессии.
func (s *Storage) Categories(ctx context.Context) ([]models.Category, error) {
	const fn = "storage.postgres.Categories"

	query, args, err := qb.
		Select("p.id", "p.sku", "p.name", "p.price", "p.price_with_tax",
			"p.discount_percentage", "p.category_id", "p.stock_quantity",
			"c.name AS category_name").
		From("products p").
		Join("categories c ON c.id = p.category_id").
		OrderBy("c.id", "p.sku").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: can't select products: %v", fn, err)
	}
	defer rows.Close()

	var (
		categories []models.Category
		current    *models.Category
	)

	for rows.Next() {
		var (
			p            models.Product
			categoryName string
			stockQty     int
		)

		err := rows.Scan(&p.ID, &p.SKU, &p.Name, &p.Price, &p.PriceWithTax,
			&p.DiscountPercentage, &p.CategoryID, &stockQty, &categoryName)
		if err != nil {
			return nil, fmt.Errorf("%s: can't scan product: %v", fn, err)
		}

		p.Stock = stockQty > 0

		if current == nil || current.CategoryID != p.CategoryID {
			categories = append(categories, models.Category{
				CategoryID:   p.CategoryID,
				CategoryName: categoryName,
			})
			current = &categories[len(categories)-1]
		}

		current.Products = append(current.Products, p)
	}

	return categories, rows.Err()
}

// PricedProduct - срез данных товара, нужный движку цен эмулятора.
type PricedProduct struct {
	SKU                string `db:"sku"`
	Price              int64  `db:"price"`
	DiscountPercentage int    `db:"discount_percentage"`
	StockQuantity      int    `db:"stock_quantity"`
}

func (s *Storage) ProductsBySKU(ctx context.Context, skus []string) (map[string]PricedProduct, error) {
	const fn = "storage.postgres.ProductsBySKU"

	query, args, err := qb.
		Select("sku", "price", "discount_percentage", "stock_quantity").
		From("products").
		Where(sq.Eq{"sku": skus}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var products []PricedProduct
	if err := s.db.SelectContext(ctx, &products, query, args...); err != nil {
		return nil, fmt.Errorf("%s: can't select products: %v", fn, err)
	}

	bySKU := make(map[string]PricedProduct, len(products))
	for _, p := range products {
		bySKU[p.SKU] = p
	}

	return bySKU, nil
}

func (s *Storage) DiscountPackages(ctx context.Context, clientID string) ([]models.DiscountPackage, error) {
	const fn = "storage.postgres.DiscountPackages"

	query, args, err := qb.
		Select("id", "id_annual_discount", "name").
		From("discount_packages").
		Where(sq.Eq{"client_id": clientID}).
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var discounts []models.DiscountPackage

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: can't select discounts: %v", fn, err)
	}
	defer rows.Close()

	for rows.Next() {
		var d models.DiscountPackage
		if err := rows.Scan(&d.ID, &d.IDAnnualDiscount, &d.Name); err != nil {
			return nil, fmt.Errorf("%s: can't scan discount: %v", fn, err)
		}
		discounts = append(discounts, d)
	}

	return discounts, rows.Err()
}

// DiscountPackage возвращает пакет скидок по идентификатору.
func (s *Storage) DiscountPackage(ctx context.Context, id string) (*models.DiscountPackage, error) {
	const fn = "storage.postgres.DiscountPackage"

	query, args, err := qb.
		Select("id", "id_annual_discount", "name").
		From("discount_packages").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var d models.DiscountPackage

	row := s.db.QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&d.ID, &d.IDAnnualDiscount, &d.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNoDiscount
		}

		return nil, fmt.Errorf("%s: can't scan discount: %v", fn, err)
	}

	return &d, nil
}

func (s *Storage) Addresses(ctx context.Context, clientID string) ([]models.Address, error) {
	const fn = "storage.postgres.Addresses"

	query, args, err := qb.
		Select("id", "address", "city").
		From("addresses").
		Where(sq.Eq{"client_id": clientID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var addresses []models.Address

	rows, err := s.db.QueryxContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: can't select addresses: %v", fn, err)
	}
	defer rows.Close()

	for rows.Next() {
		var a models.Address
		if err := rows.Scan(&a.ID, &a.Address, &a.City); err != nil {
			return nil, fmt.Errorf("%s: can't scan address: %v", fn, err)
		}
		addresses = append(addresses, a)
	}

	return addresses, rows.Err()
}

// SaveDraft сохраняет черновик заказа. Позиции и данные доставки хранятся
// как JSON: эмулятор обязан вернуть их при возобновлении байт-в-байт
// по смыслу, без потерь полей.
func (s *Storage) SaveDraft(ctx context.Context, draft *models.OrderDraft) error {
	const fn = "storage.postgres.SaveDraft"

	items, err := json.Marshal(draft.Items)
	if err != nil {
		return fmt.Errorf("%s: can't marshal items: %v", fn, err)
	}

	shipping, err := json.Marshal(draft.Shipping)
	if err != nil {
		return fmt.Errorf("%s: can't marshal shipping: %v", fn, err)
	}

	query, args, err := qb.
		Insert("drafts").
		Columns("id", "client_id", "discount_id", "items", "shipping", "created_at").
		Values(draft.ID, draft.Client.ID, draft.DiscountID, items, shipping, draft.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: can't insert draft: %v", fn, err)
	}

	return nil
}

func (s *Storage) GetDraft(ctx context.Context, id string) (*models.OrderDraft, error) {
	const fn = "storage.postgres.GetDraft"

	query, args, err := qb.
		Select("d.id", "d.discount_id", "d.items", "d.shipping", "d.created_at",
			"c.id", "c.name", "c.email", "c.payment_type").
		From("drafts d").
		Join("clients c ON c.id = d.client_id").
		Where(sq.Eq{"d.id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	var (
		draft    models.OrderDraft
		items    []byte
		shipping []byte
	)

	row := s.db.QueryRowxContext(ctx, query, args...)
	err = row.Scan(&draft.ID, &draft.DiscountID, &items, &shipping, &draft.CreatedAt,
		&draft.Client.ID, &draft.Client.Name, &draft.Client.Email, &draft.Client.PaymentType)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNoDraft
	}
	if err != nil {
		return nil, fmt.Errorf("%s: can't scan draft: %v", fn, err)
	}

	if err := json.Unmarshal(items, &draft.Items); err != nil {
		return nil, fmt.Errorf("%s: can't unmarshal items: %v", fn, err)
	}
	if err := json.Unmarshal(shipping, &draft.Shipping); err != nil {
		return nil, fmt.Errorf("%s: can't unmarshal shipping: %v", fn, err)
	}

	return &draft, nil
}

func (s *Storage) DeleteDraft(ctx context.Context, id string) error {
	const fn = "storage.postgres.DeleteDraft"

	query, args, err := qb.Delete("drafts").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: can't delete draft: %v", fn, err)
	}

	return nil
}

// CreateOrder сохраняет финальный заказ эмулятора.
func (s *Storage) CreateOrder(ctx context.Context, orderID, clientID, draftID, discountID, notificationID string, items []models.OrderSummaryItem, shipping models.ShippingInformation) error {
	const fn = "storage.postgres.CreateOrder"

	itemsJSON, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("%s: can't marshal items: %v", fn, err)
	}

	shippingJSON, err := json.Marshal(shipping)
	if err != nil {
		return fmt.Errorf("%s: can't marshal shipping: %v", fn, err)
	}

	query, args, err := qb.
		Insert("orders").
		Columns("id", "client_id", "draft_id", "discount_id", "notification_id", "items", "shipping", "created_at").
		Values(orderID, clientID, nullable(draftID), discountID, nullable(notificationID), itemsJSON, shippingJSON, time.Now().UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: can't insert order: %v", fn, err)
	}

	return nil
}

// ArchiveOrder записывает событие заказа в архивную таблицу.
// Используется консьюмером order-archiver.
func (s *Storage) ArchiveOrder(ctx context.Context, event *models.OrderEvent) error {
	const fn = "storage.postgres.ArchiveOrder"

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("%s: can't marshal event: %v", fn, err)
	}

	query, args, err := qb.
		Insert("archived_orders").
		Columns("order_id", "session_id", "client_id", "kind", "total", "payload", "created_at").
		Values(event.OrderID, event.SessionID, event.ClientID, event.Kind, event.Total, payload, event.CreatedAt).
		Suffix("ON CONFLICT (order_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("%s: can't build query: %v", fn, err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("%s: can't insert archived order: %v", fn, err)
	}

	return nil
}

// CountClients нужен эмулятору, чтобы решить, сидировать ли пустую базу.
func (s *Storage) CountClients(ctx context.Context) (int, error) {
	const fn = "storage.postgres.CountClients"

	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM clients"); err != nil {
		return 0, fmt.Errorf("%s: can't count clients: %v", fn, err)
	}

	return count, nil
}

func (s *Storage) DB() *sqlx.DB {
	return s.db
}

func nullable(s string) any {
	if s == "" {
		return nil
	}

	return s
}

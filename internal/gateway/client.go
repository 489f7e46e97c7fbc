// Package gateway реализует REST-клиент коммерческого шлюза.
// Шлюз является единственным источником правды о ценах: клиент отправляет
// выбранные позиции и пакет скидок, а обратно получает рассчитанное
// подтверждение заказа. Здесь нет никакой ценовой арифметики.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/comercio/order-session/internal/config"
	"github.com/comercio/order-session/internal/models"
)

type Client struct {
	baseURL   string
	projectID string
	http      *http.Client
}

// Error переносит бизнес-ошибку шлюза (невалидный тип документа,
// дубликат email и т.п.) вместе с HTTP-статусом.
type Error struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: %s (status %d)", e.Message, e.StatusCode)
}

// wrap оборачивает ошибку меткой вызова, пропуская бизнес-ошибки шлюза
// без обертки: вызывающий код показывает их сообщение пользователю.
func wrap(fn string, err error) error {
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr
	}

	return fmt.Errorf("%s: %v", fn, err)
}

func New(cfg config.Gateway) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		projectID: cfg.ProjectID,
		http:      &http.Client{Timeout: cfg.Timeout},
	}
}

// ConfirmRequest - тело запроса на расчет заказа.
type ConfirmRequest struct {
	DiscountPackage string                    `json:"discount_package"`
	OrderSummary    []models.OrderSummaryItem `json:"order_summary"`
}

// SubmitRequest - тело запроса на создание черновика или заказа.
type SubmitRequest struct {
	ClientID        string                     `json:"client_id"`
	DiscountPackage string                     `json:"discount_package"`
	OrderSummary    []models.OrderSummaryItem  `json:"order_summary"`
	Shipping        models.ShippingInformation `json:"shipping"`
}

// SubmitResult - ответ шлюза на создание черновика или заказа.
// NotificationID пуст, если шлюз не создал собственного уведомления.
type SubmitResult struct {
	OrderID        string `json:"id_order"`
	NotificationID string `json:"notification_id,omitempty"`
}

func (c *Client) Clients(ctx context.Context) ([]models.Client, error) {
	const fn = "gateway.Clients"

	var clients []models.Client
	if err := c.get(ctx, "/clients?project_id="+url.QueryEscape(c.projectID), &clients); err != nil {
		return nil, wrap(fn, err)
	}

	return clients, nil
}

func (c *Client) Categories(ctx context.Context) ([]models.Category, error) {
	const fn = "gateway.Categories"

	var categories []models.Category
	if err := c.get(ctx, "/categories", &categories); err != nil {
		return nil, wrap(fn, err)
	}

	return categories, nil
}

func (c *Client) DiscountPackages(ctx context.Context, clientID string) ([]models.DiscountPackage, error) {
	const fn = "gateway.DiscountPackages"

	path := fmt.Sprintf("/clients/%s/discounts?project_id=%s",
		url.PathEscape(clientID), url.QueryEscape(c.projectID))

	var discounts []models.DiscountPackage
	if err := c.get(ctx, path, &discounts); err != nil {
		return nil, wrap(fn, err)
	}

	return discounts, nil
}

func (c *Client) Addresses(ctx context.Context, clientID string) ([]models.Address, error) {
	const fn = "gateway.Addresses"

	var addresses []models.Address
	if err := c.get(ctx, "/clients/"+url.PathEscape(clientID)+"/addresses", &addresses); err != nil {
		return nil, wrap(fn, err)
	}

	return addresses, nil
}

func (c *Client) ConfirmOrder(ctx context.Context, req ConfirmRequest) (*models.OrderConfirmation, error) {
	const fn = "gateway.ConfirmOrder"

	var confirmation models.OrderConfirmation
	if err := c.post(ctx, "/orders/confirm", req, &confirmation); err != nil {
		return nil, wrap(fn, err)
	}

	return &confirmation, nil
}

func (c *Client) CreateDraft(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	const fn = "gateway.CreateDraft"

	var result SubmitResult
	if err := c.post(ctx, "/orders/drafts", req, &result); err != nil {
		return nil, wrap(fn, err)
	}

	return &result, nil
}

func (c *Client) ConvertDraft(ctx context.Context, draftID string, req SubmitRequest) (*SubmitResult, error) {
	const fn = "gateway.ConvertDraft"

	var result SubmitResult
	if err := c.post(ctx, "/orders/drafts/"+url.PathEscape(draftID)+"/finalize", req, &result); err != nil {
		return nil, wrap(fn, err)
	}

	return &result, nil
}

func (c *Client) CreateOrder(ctx context.Context, req SubmitRequest) (*SubmitResult, error) {
	const fn = "gateway.CreateOrder"

	var result SubmitResult
	if err := c.post(ctx, "/orders", req, &result); err != nil {
		return nil, wrap(fn, err)
	}

	return &result, nil
}

func (c *Client) Draft(ctx context.Context, draftID string) (*models.OrderDraft, error) {
	const fn = "gateway.Draft"

	var draft models.OrderDraft
	if err := c.get(ctx, "/orders/drafts/"+url.PathEscape(draftID), &draft); err != nil {
		return nil, wrap(fn, err)
	}

	return &draft, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("can't create request: %v", err)
	}

	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("can't marshal request body: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("can't create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("can't do request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		gwErr := &Error{StatusCode: resp.StatusCode}

		body, readErr := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if readErr == nil && json.Unmarshal(body, gwErr) == nil && gwErr.Message != "" {
			return gwErr
		}

		gwErr.Message = http.StatusText(resp.StatusCode)

		return gwErr
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("can't decode response: %v", err)
	}

	return nil
}

package models

import "time"

type Client struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PaymentType int    `json:"payment_type"`
}

type Category struct {
	CategoryID   int       `json:"category_id"`
	CategoryName string    `json:"category_name"`
	Products     []Product `json:"products"`
}

// Product quantities are mutated while the user builds the order;
// Stock is flipped to false only by the confirmation feedback.
type Product struct {
	ID                 string `json:"id"`
	SKU                string `json:"sku"`
	Name               string `json:"name"`
	Price              int64  `json:"price"`
	PriceWithTax       int64  `json:"price_with_tax"`
	DiscountPercentage int    `json:"discount_percentage"`
	Quantity           int    `json:"quantity"`
	CategoryID         int    `json:"category_id"`
	Stock              bool   `json:"stock"`
}

type DiscountPackage struct {
	ID               string `json:"id"`
	IDAnnualDiscount string `json:"id_annual_discount"`
	Name             string `json:"name"`
}

type DiscountItem struct {
	ProductSKU string `json:"product_sku"`
	Amount     int64  `json:"amount"`
}

type Discounts struct {
	TotalDiscount int64          `json:"total_discount"`
	DiscountItems []DiscountItem `json:"discount_items"`
}

// OrderConfirmation is the gateway's authoritative pricing response.
// Stale is set locally when the latest edits have not been re-priced yet
// or when the last pricing request failed.
type OrderConfirmation struct {
	Subtotal                      int64     `json:"subtotal"`
	Discounts                     Discounts `json:"discounts"`
	Total                         int64     `json:"total"`
	Taxes                         int64     `json:"taxes"`
	TotalWithEarlyPaymentDiscount int64     `json:"total_with_early_payment_discount"`
	InsufficientStockProducts     []string  `json:"insufficient_stock_products"`

	Stale bool `json:"stale"`
}

type OrderSummaryItem struct {
	ProductSKU string `json:"product_sku"`
	Quantity   int    `json:"quantity"`
}

type ShippingInformation struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	Email      string `json:"email"`
	Indicative string `json:"indicative"`
	Phone      string `json:"phone"`
	Comments   string `json:"comments"`
	AddressID  string `json:"address_id,omitempty"`
}

type Address struct {
	ID      string `json:"id"`
	Address string `json:"address"`
	City    string `json:"city"`
}

// OrderDraft is a partially completed order persisted by the gateway,
// resumable later to finish checkout.
type OrderDraft struct {
	ID         string              `json:"id"`
	Client     Client              `json:"client"`
	Items      []OrderSummaryItem  `json:"items"`
	Shipping   ShippingInformation `json:"shipping"`
	DiscountID string              `json:"discount_id"`
	CreatedAt  time.Time           `json:"created_at"`
}

// OrderEvent is published to Kafka when an order is finalized or drafted.
type OrderEvent struct {
	OrderID    string              `json:"order_id"`
	SessionID  string              `json:"session_id"`
	ClientID   string              `json:"client_id"`
	DraftID    string              `json:"draft_id,omitempty"`
	Kind       string              `json:"kind"` // "draft" or "order"
	Items      []OrderSummaryItem  `json:"items"`
	Shipping   ShippingInformation `json:"shipping"`
	DiscountID string              `json:"discount_id"`
	Total      int64               `json:"total"`
	CreatedAt  time.Time           `json:"created_at"`
}

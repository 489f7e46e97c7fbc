package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comercio/order-session/internal/config"
	"github.com/comercio/order-session/internal/models"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return New(config.Gateway{
		BaseURL:   srv.URL,
		ProjectID: "comercio",
		Timeout:   5 * time.Second,
	})
}

func TestConfirmOrder(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/orders/confirm", r.URL.Path)

		var req ConfirmRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "d1", req.DiscountPackage)

		json.NewEncoder(w).Encode(models.OrderConfirmation{
			Subtotal: 25000,
			Total:    27370,
		})
	})

	confirmation, err := c.ConfirmOrder(context.Background(), ConfirmRequest{
		DiscountPackage: "d1",
		OrderSummary:    []models.OrderSummaryItem{{ProductSKU: "SKU-1", Quantity: 2}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(27370), confirmation.Total)
}

func TestClientsPassesProjectID(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/clients", r.URL.Path)
		require.Equal(t, "comercio", r.URL.Query().Get("project_id"))

		json.NewEncoder(w).Encode([]models.Client{{ID: "c1", Name: "Cliente"}})
	})

	clients, err := c.Clients(context.Background())
	require.NoError(t, err)
	require.Len(t, clients, 1)
}

func TestBusinessErrorSurfacesMessage(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"message": "unknown client"})
	})

	_, err := c.CreateOrder(context.Background(), SubmitRequest{ClientID: "no-such"})

	// Бизнес-ошибка шлюза доходит до вызывающего кода без обертки.
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, http.StatusUnprocessableEntity, gwErr.StatusCode)
	require.Equal(t, "unknown client", gwErr.Message)
}

func TestErrorWithoutBodyFallsBackToStatusText(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	_, err := c.Categories(context.Background())

	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	require.Equal(t, http.StatusText(http.StatusInternalServerError), gwErr.Message)
}

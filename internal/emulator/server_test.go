package emulator

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/comercio/order-session/internal/gateway"
	"github.com/comercio/order-session/internal/models"
	"github.com/comercio/order-session/internal/storage"
	"github.com/comercio/order-session/internal/storage/postgres"
	"github.com/stretchr/testify/require"
)

type fakeStorage struct {
	clients  map[string]models.Client
	products map[string]postgres.PricedProduct
	drafts   map[string]*models.OrderDraft
	orders   []string
}

func (f *fakeStorage) Clients(context.Context) ([]models.Client, error) {
	var clients []models.Client
	for _, c := range f.clients {
		clients = append(clients, c)
	}

	return clients, nil
}

func (f *fakeStorage) Client(_ context.Context, id string) (*models.Client, error) {
	c, ok := f.clients[id]
	if !ok {
		return nil, storage.ErrNoClient
	}

	return &c, nil
}

func (f *fakeStorage) Categories(context.Context) ([]models.Category, error) {
	return nil, nil
}

func (f *fakeStorage) ProductsBySKU(_ context.Context, skus []string) (map[string]postgres.PricedProduct, error) {
	found := make(map[string]postgres.PricedProduct)
	for _, sku := range skus {
		if p, ok := f.products[sku]; ok {
			found[sku] = p
		}
	}

	return found, nil
}

func (f *fakeStorage) DiscountPackages(context.Context, string) ([]models.DiscountPackage, error) {
	return nil, nil
}

func (f *fakeStorage) DiscountPackage(context.Context, string) (*models.DiscountPackage, error) {
	return nil, storage.ErrNoDiscount
}

func (f *fakeStorage) Addresses(context.Context, string) ([]models.Address, error) {
	return nil, nil
}

func (f *fakeStorage) SaveDraft(_ context.Context, draft *models.OrderDraft) error {
	f.drafts[draft.ID] = draft

	return nil
}

func (f *fakeStorage) GetDraft(_ context.Context, id string) (*models.OrderDraft, error) {
	draft, ok := f.drafts[id]
	if !ok {
		return nil, storage.ErrNoDraft
	}

	return draft, nil
}

func (f *fakeStorage) DeleteDraft(_ context.Context, id string) error {
	delete(f.drafts, id)

	return nil
}

func (f *fakeStorage) CreateOrder(_ context.Context, orderID, _, _, _, _ string, _ []models.OrderSummaryItem, _ models.ShippingInformation) error {
	f.orders = append(f.orders, orderID)

	return nil
}

func testServer(t *testing.T) (*httptest.Server, *fakeStorage) {
	t.Helper()

	st := &fakeStorage{
		clients: map[string]models.Client{
			// payment_type=1 получает уведомление, остальные нет.
			"c1": {ID: "c1", Name: "Con notificación", PaymentType: 1},
			"c2": {ID: "c2", Name: "Sin notificación"},
		},
		products: map[string]postgres.PricedProduct{
			"SKU-1": {SKU: "SKU-1", Price: 10000, StockQuantity: 5},
		},
		drafts: make(map[string]*models.OrderDraft),
	}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(NewServer(st, log).Router())
	t.Cleanup(srv.Close)

	return srv, st
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	resp, err := http.Post(url, "application/json", bytes.NewReader(payload))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	return resp
}

func TestConfirmEndpoint(t *testing.T) {
	srv, _ := testServer(t)

	resp := postJSON(t, srv.URL+"/orders/confirm", gateway.ConfirmRequest{
		OrderSummary: []models.OrderSummaryItem{{ProductSKU: "SKU-1", Quantity: 2}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var confirmation models.OrderConfirmation
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&confirmation))
	require.Equal(t, int64(20000), confirmation.Subtotal)
	require.Equal(t, int64(23800), confirmation.Total)
}

func TestConfirmEndpointUnknownSKU(t *testing.T) {
	srv, _ := testServer(t)

	resp := postJSON(t, srv.URL+"/orders/confirm", gateway.ConfirmRequest{
		OrderSummary: []models.OrderSummaryItem{{ProductSKU: "NO-SUCH", Quantity: 1}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.Contains(t, body["message"], "NO-SUCH")
}

func TestCreateOrderNotificationRule(t *testing.T) {
	srv, _ := testServer(t)

	resp := postJSON(t, srv.URL+"/orders", gateway.SubmitRequest{ClientID: "c1"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result gateway.SubmitResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotEmpty(t, result.OrderID)
	require.NotEmpty(t, result.NotificationID)

	resp = postJSON(t, srv.URL+"/orders", gateway.SubmitRequest{ClientID: "c2"})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result = gateway.SubmitResult{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&result))
	require.NotEmpty(t, result.OrderID)
	require.Empty(t, result.NotificationID)
}

func TestCreateOrderUnknownClient(t *testing.T) {
	srv, _ := testServer(t)

	resp := postJSON(t, srv.URL+"/orders", gateway.SubmitRequest{ClientID: "no-such"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestDraftLifecycle(t *testing.T) {
	srv, st := testServer(t)

	resp := postJSON(t, srv.URL+"/orders/drafts", gateway.SubmitRequest{
		ClientID:     "c2",
		OrderSummary: []models.OrderSummaryItem{{ProductSKU: "SKU-1", Quantity: 2}},
		Shipping:     models.ShippingInformation{Address: "Calle 10 #20-30", City: "Bogotá"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var created gateway.SubmitResult
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	require.NotEmpty(t, created.OrderID)

	// Черновик возвращается со всеми данными для возобновления.
	getResp, err := http.Get(srv.URL + "/orders/drafts/" + created.OrderID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusOK, getResp.StatusCode)

	var draft models.OrderDraft
	require.NoError(t, json.NewDecoder(getResp.Body).Decode(&draft))
	require.Equal(t, "c2", draft.Client.ID)
	require.Equal(t, "Calle 10 #20-30", draft.Shipping.Address)
	require.Equal(t, 2, draft.Items[0].Quantity)
	require.WithinDuration(t, time.Now().UTC(), draft.CreatedAt, time.Minute)

	// Конвертация создает заказ и удаляет черновик.
	resp = postJSON(t, srv.URL+"/orders/drafts/"+created.OrderID+"/finalize", gateway.SubmitRequest{
		ClientID:     "c2",
		OrderSummary: draft.Items,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, st.orders, 1)
	require.Empty(t, st.drafts)

	getResp, err = http.Get(srv.URL + "/orders/drafts/" + created.OrderID)
	require.NoError(t, err)
	defer getResp.Body.Close()
	require.Equal(t, http.StatusNotFound, getResp.StatusCode)
}

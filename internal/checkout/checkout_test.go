package checkout

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/comercio/order-session/internal/gateway"
	"github.com/comercio/order-session/internal/models"
	"github.com/comercio/order-session/internal/session"
	"github.com/comercio/order-session/internal/storage"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/require"
)

// memStore повторяет поведение Redis-хранилища: снапшоты живут как JSON.
type memStore struct {
	mu       sync.Mutex
	sessions map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string][]byte)}
}

func (m *memStore) SaveSession(_ context.Context, s *session.Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.sessions[s.ID] = data
	m.mu.Unlock()

	return nil
}

func (m *memStore) GetSession(_ context.Context, id string) (*session.Session, error) {
	m.mu.Lock()
	data, ok := m.sessions[id]
	m.mu.Unlock()

	if !ok {
		return nil, storage.ErrNoSession
	}

	var s session.Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, err
	}

	return &s, nil
}

func (m *memStore) DeleteSession(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()

	return nil
}

// sessionGateway обслуживает менеджер сессий.
type sessionGateway struct {
	clients    []models.Client
	categories []models.Category
	discounts  map[string][]models.DiscountPackage
	draft      *models.OrderDraft
}

func (f *sessionGateway) Clients(context.Context) ([]models.Client, error) {
	return f.clients, nil
}

func (f *sessionGateway) Categories(context.Context) ([]models.Category, error) {
	return f.categories, nil
}

func (f *sessionGateway) DiscountPackages(_ context.Context, clientID string) ([]models.DiscountPackage, error) {
	return f.discounts[clientID], nil
}

func (f *sessionGateway) ConfirmOrder(_ context.Context, _ gateway.ConfirmRequest) (*models.OrderConfirmation, error) {
	return &models.OrderConfirmation{Total: 11900}, nil
}

func (f *sessionGateway) Draft(_ context.Context, draftID string) (*models.OrderDraft, error) {
	if f.draft == nil || f.draft.ID != draftID {
		return nil, storage.ErrNoDraft
	}

	return f.draft, nil
}

// submitGateway обслуживает сервис оформления и записывает обращения.
type submitGateway struct {
	mu        sync.Mutex
	addresses []models.Address
	result    gateway.SubmitResult

	drafts    []gateway.SubmitRequest
	orders    []gateway.SubmitRequest
	converted []string
}

func (f *submitGateway) Addresses(_ context.Context, _ string) ([]models.Address, error) {
	return f.addresses, nil
}

func (f *submitGateway) CreateDraft(_ context.Context, req gateway.SubmitRequest) (*gateway.SubmitResult, error) {
	f.mu.Lock()
	f.drafts = append(f.drafts, req)
	f.mu.Unlock()

	result := f.result

	return &result, nil
}

func (f *submitGateway) ConvertDraft(_ context.Context, draftID string, req gateway.SubmitRequest) (*gateway.SubmitResult, error) {
	f.mu.Lock()
	f.converted = append(f.converted, draftID)
	f.orders = append(f.orders, req)
	f.mu.Unlock()

	result := f.result

	return &result, nil
}

func (f *submitGateway) CreateOrder(_ context.Context, req gateway.SubmitRequest) (*gateway.SubmitResult, error) {
	f.mu.Lock()
	f.orders = append(f.orders, req)
	f.mu.Unlock()

	result := f.result

	return &result, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (r *eventRecorder) PublishOrderEvent(_ context.Context, event models.OrderEvent) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()

	return nil
}

func testEnv(t *testing.T) (*Service, *session.Manager, *sessionGateway, *submitGateway, *eventRecorder) {
	t.Helper()

	sgw := &sessionGateway{
		clients: []models.Client{
			{ID: "c1", Name: "Ferretería El Martillo", Email: "martillo@example.com", PaymentType: 1},
		},
		categories: []models.Category{
			{
				CategoryID:   1,
				CategoryName: "Ferretería",
				Products: []models.Product{
					{ID: "p1", SKU: "SKU-1", Name: "Martillo", Price: 10000, PriceWithTax: 11900, CategoryID: 1, Stock: true},
				},
			},
		},
		discounts: map[string][]models.DiscountPackage{
			"c1": {
				{ID: "d1", Name: "Básico"},
				{ID: "d2", IDAnnualDiscount: "annual", Name: "Anual"},
			},
		},
	}

	gw := &submitGateway{
		addresses: []models.Address{
			{ID: "a1", Address: "Carrera 7 #45-10", City: "Medellín"},
		},
		result: gateway.SubmitResult{OrderID: "order-1"},
	}

	events := &eventRecorder{}

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	sessions := session.NewManager(sgw, newMemStore(), time.Hour, log)
	svc := New(gw, sessions, events, log)

	return svc, sessions, sgw, gw, events
}

// checkingOutSession доводит новую сессию до фазы оформления.
func checkingOutSession(t *testing.T, sessions *session.Manager) string {
	t.Helper()

	ctx := context.Background()

	s, err := sessions.Start(ctx)
	require.NoError(t, err)

	_, err = sessions.SelectClient(ctx, s.ID, "c1")
	require.NoError(t, err)

	_, err = sessions.SetQuantity(ctx, s.ID, "SKU-1", 2)
	require.NoError(t, err)

	_, err = sessions.BeginCheckout(ctx, s.ID)
	require.NoError(t, err)

	return s.ID
}

func validForm() Form {
	return Form{
		Address:    "Calle 10 #20-30",
		City:       "Bogotá",
		Email:      "martillo@example.com",
		Indicative: "57",
		Phone:      "3001234567",
		Comments:   "entregar en la mañana",
		DiscountID: "d1",
	}
}

func TestFormValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Form)
		field  string
	}{
		{
			name:   "missing address and address id",
			modify: func(f *Form) { f.Address = "" },
			field:  "AddressID",
		},
		{
			name:   "address too short",
			modify: func(f *Form) { f.Address = "Cll" },
			field:  "Address",
		},
		{
			name:   "missing city",
			modify: func(f *Form) { f.City = "" },
			field:  "City",
		},
		{
			name:   "invalid email",
			modify: func(f *Form) { f.Email = "not-an-email" },
			field:  "Email",
		},
		{
			name:   "indicative not numeric",
			modify: func(f *Form) { f.Indicative = "+57" },
			field:  "Indicative",
		},
		{
			name:   "phone too short",
			modify: func(f *Form) { f.Phone = "12345" },
			field:  "Phone",
		},
		{
			name:   "phone not numeric",
			modify: func(f *Form) { f.Phone = "30012345ab" },
			field:  "Phone",
		},
		{
			// Знак не цифра: 10 символов, но только 9 цифр.
			name:   "phone with sign",
			modify: func(f *Form) { f.Phone = "+301234567" },
			field:  "Phone",
		},
		{
			name:   "comments too long",
			modify: func(f *Form) { f.Comments = "este comentario es demasiado largo para el formulario" },
			field:  "Comments",
		},
		{
			name:   "missing discount",
			modify: func(f *Form) { f.DiscountID = "" },
			field:  "DiscountID",
		},
	}

	svc, sessions, _, _, _ := testEnv(t)
	id := checkingOutSession(t, sessions)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			form := validForm()
			tt.modify(&form)

			_, err := svc.Finalize(context.Background(), id, form)

			var validateErr validator.ValidationErrors
			require.ErrorAs(t, err, &validateErr)
			require.Equal(t, tt.field, validateErr[0].Field())
		})
	}
}

func TestFinalizeCreatesOrder(t *testing.T) {
	svc, sessions, _, gw, events := testEnv(t)
	id := checkingOutSession(t, sessions)

	result, err := svc.Finalize(context.Background(), id, validForm())
	require.NoError(t, err)
	require.Equal(t, "order-1", result.OrderID)
	require.Equal(t, "/comercio/pedidoConfirmado/order-1?notification=order-1", result.RedirectURL)

	require.Len(t, gw.orders, 1)
	require.Equal(t, "c1", gw.orders[0].ClientID)
	require.Equal(t, []models.OrderSummaryItem{{ProductSKU: "SKU-1", Quantity: 2}}, gw.orders[0].OrderSummary)
	require.Equal(t, "Calle 10 #20-30", gw.orders[0].Shipping.Address)
	require.Empty(t, gw.orders[0].Shipping.AddressID)

	// Сессия отправлена: событие опубликовано, снапшот удален.
	require.Len(t, events.events, 1)
	require.Equal(t, "order", events.events[0].Kind)
	require.Equal(t, "order-1", events.events[0].OrderID)

	_, err = sessions.Get(context.Background(), id)
	require.ErrorIs(t, err, storage.ErrNoSession)
}

func TestFinalizeRequiresCheckoutPhase(t *testing.T) {
	svc, sessions, _, _, _ := testEnv(t)

	ctx := context.Background()

	s, err := sessions.Start(ctx)
	require.NoError(t, err)

	_, err = sessions.SelectClient(ctx, s.ID, "c1")
	require.NoError(t, err)

	_, err = sessions.SetQuantity(ctx, s.ID, "SKU-1", 1)
	require.NoError(t, err)

	_, err = svc.Finalize(ctx, s.ID, validForm())
	require.ErrorIs(t, err, session.ErrInvalidTransition)
}

func TestFinalizeWithExistingAddress(t *testing.T) {
	svc, sessions, _, gw, _ := testEnv(t)
	id := checkingOutSession(t, sessions)

	form := validForm()
	form.AddressID = "a1"
	form.Address = "texto que se ignora"
	form.City = "ciudad que se ignora"

	_, err := svc.Finalize(context.Background(), id, form)
	require.NoError(t, err)

	// Для сохраненного адреса город и улица берутся из записи шлюза.
	require.Len(t, gw.orders, 1)
	require.Equal(t, "a1", gw.orders[0].Shipping.AddressID)
	require.Equal(t, "Carrera 7 #45-10", gw.orders[0].Shipping.Address)
	require.Equal(t, "Medellín", gw.orders[0].Shipping.City)
}

func TestFinalizeUnknownAddress(t *testing.T) {
	svc, sessions, _, _, _ := testEnv(t)
	id := checkingOutSession(t, sessions)

	form := validForm()
	form.AddressID = "no-such"

	_, err := svc.Finalize(context.Background(), id, form)
	require.ErrorIs(t, err, ErrUnknownAddress)
}

func TestSaveDraft(t *testing.T) {
	svc, sessions, _, gw, events := testEnv(t)
	id := checkingOutSession(t, sessions)

	result, err := svc.SaveDraft(context.Background(), id, validForm())
	require.NoError(t, err)
	require.Equal(t, "/comercio/pedidos", result.RedirectURL)

	require.Len(t, gw.drafts, 1)
	require.Empty(t, gw.orders)

	require.Len(t, events.events, 1)
	require.Equal(t, "draft", events.events[0].Kind)
}

func TestResumedDraftCannotBeSavedAgain(t *testing.T) {
	svc, sessions, sgw, _, _ := testEnv(t)

	sgw.draft = &models.OrderDraft{
		ID:         "draft-1",
		Client:     sgw.clients[0],
		Items:      []models.OrderSummaryItem{{ProductSKU: "SKU-1", Quantity: 2}},
		DiscountID: "d1",
		CreatedAt:  time.Now().UTC(),
	}

	s, err := sessions.Resume(context.Background(), "draft-1")
	require.NoError(t, err)

	_, err = svc.SaveDraft(context.Background(), s.ID, validForm())
	require.ErrorIs(t, err, session.ErrDraftResume)
}

func TestFinalizeResumedDraftConvertsIt(t *testing.T) {
	svc, sessions, sgw, gw, _ := testEnv(t)

	sgw.draft = &models.OrderDraft{
		ID:         "draft-1",
		Client:     sgw.clients[0],
		Items:      []models.OrderSummaryItem{{ProductSKU: "SKU-1", Quantity: 2}},
		DiscountID: "d1",
		CreatedAt:  time.Now().UTC(),
	}

	s, err := sessions.Resume(context.Background(), "draft-1")
	require.NoError(t, err)

	_, err = svc.Finalize(context.Background(), s.ID, validForm())
	require.NoError(t, err)

	require.Equal(t, []string{"draft-1"}, gw.converted)
}

func TestRedirectURL(t *testing.T) {
	// Без уведомления от шлюза параметр notification добавляется сам.
	url := RedirectURL(&gateway.SubmitResult{OrderID: "order-1"})
	require.Equal(t, "/comercio/pedidoConfirmado/order-1?notification=order-1", url)

	url = RedirectURL(&gateway.SubmitResult{OrderID: "order-1", NotificationID: "n-1"})
	require.Equal(t, "/comercio/pedidoConfirmado/order-1", url)
}

package submit

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/comercio/order-session/internal/checkout"
	"github.com/comercio/order-session/internal/gateway"
	"github.com/comercio/order-session/internal/session"
	"github.com/stretchr/testify/require"
)

type fakeCheckout struct {
	result *checkout.Result
	err    error
}

func (f *fakeCheckout) SaveDraft(context.Context, string, checkout.Form) (*checkout.Result, error) {
	return f.result, f.err
}

func (f *fakeCheckout) Finalize(context.Context, string, checkout.Form) (*checkout.Result, error) {
	return f.result, f.err
}

func do(t *testing.T, handler http.HandlerFunc, form checkout.Form) Response {
	t.Helper()

	payload, err := json.Marshal(form)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/sessions/s1/checkout/order", bytes.NewReader(payload))
	rec := httptest.NewRecorder()

	handler(rec, req)

	var body Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))

	return body
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFinalizeHandlerOK(t *testing.T) {
	svc := &fakeCheckout{result: &checkout.Result{
		OrderID:     "order-1",
		RedirectURL: "/comercio/pedidoConfirmado/order-1?notification=order-1",
	}}

	body := do(t, Finalize(discardLogger(), svc), checkout.Form{})

	require.Equal(t, "OK", body.Status)
	require.Equal(t, "order-1", body.Result.OrderID)
	require.Equal(t, "/comercio/pedidoConfirmado/order-1?notification=order-1", body.Result.RedirectURL)
}

func TestSubmitHandlerErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "resumed draft",
			err:  session.ErrDraftResume,
			want: "a resumed draft can't be saved as a draft again",
		},
		{
			name: "wrong phase",
			err:  session.ErrInvalidTransition,
			want: "session is not in checkout",
		},
		{
			name: "unknown address",
			err:  checkout.ErrUnknownAddress,
			want: "unknown address",
		},
		{
			name: "gateway business error passes through",
			err:  &gateway.Error{StatusCode: http.StatusUnprocessableEntity, Message: "unknown client"},
			want: "unknown client",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeCheckout{err: tt.err}

			body := do(t, Draft(discardLogger(), svc), checkout.Form{})

			require.Equal(t, "Error", body.Status)
			require.Equal(t, tt.want, body.Error)
		})
	}
}

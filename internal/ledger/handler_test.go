package ledger

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/nexcell-pos/nexcell-pos/internal/authz"
	"github.com/nexcell-pos/nexcell-pos/internal/shared"
)

type fakePaymentCounter struct {
	counts map[string]int
}

func (f *fakePaymentCounter) CountPayment(action, targetKind string) {
	if f.counts == nil {
		f.counts = make(map[string]int)
	}
	f.counts[action+"/"+targetKind]++
}

func newLedgerRouter(repo *memoryLedgerRepo, counter PaymentCounter, role string) http.Handler {
	svc := NewService(repo, nil, nil, nil)
	guard := authz.Middleware{Evaluator: authz.NewEvaluator()}
	handler := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), svc, guard, counter)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			if role != "" {
				sess := &shared.Session{}
				sess.SetWorker("7", role)
				req = req.WithContext(shared.ContextWithSession(req.Context(), sess))
			}
			next.ServeHTTP(w, req)
		})
	})
	r.Route("/payments", handler.MountRoutes)
	return r
}

func TestApplyPaymentEndpoint(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetSale, 1, "100.00")
	counter := &fakePaymentCounter{}
	router := newLedgerRouter(repo, counter, "CASHIER")

	body := `{"target_kind":"SALE","target_id":1,"amount":"40.00","method":"CASH"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	require.Equal(t, "40.00", snap.AmountPaid.StringFixed(2))
	require.Equal(t, StatusPartial, snap.Status)
	require.Equal(t, 1, counter.counts["apply/SALE"])
}

func TestApplyPaymentEndpointRejectsOverpayment(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetSale, 1, "100.00")
	router := newLedgerRouter(repo, nil, "CASHIER")

	body := `{"target_kind":"SALE","target_id":1,"amount":"100.01","method":"CASH"}`
	req := httptest.NewRequest(http.MethodPost, "/payments/", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestApplyPaymentEndpointValidation(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetSale, 1, "100.00")
	router := newLedgerRouter(repo, nil, "CASHIER")

	for name, body := range map[string]string{
		"bad kind":   `{"target_kind":"INVOICE","target_id":1,"amount":"10.00","method":"CASH"}`,
		"bad amount": `{"target_kind":"SALE","target_id":1,"amount":"ten","method":"CASH"}`,
		"bad method": `{"target_kind":"SALE","target_id":1,"amount":"10.00","method":"BARTER"}`,
		"bad json":   `{"target_kind":`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/payments/", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestDeletePaymentRequiresManager(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetSale, 1, "100.00")
	svc := NewService(repo, nil, nil, nil)
	_, err := svc.ApplyPayment(context.Background(), ApplyPaymentInput{
		Kind:     TargetSale,
		TargetID: 1,
		Amount:   decimal.RequireFromString("40.00"),
		Method:   "CASH",
	})
	require.NoError(t, err)

	asCashier := newLedgerRouter(repo, nil, "CASHIER")
	req := httptest.NewRequest(http.MethodDelete, "/payments/1", nil)
	rec := httptest.NewRecorder()
	asCashier.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	counter := &fakePaymentCounter{}
	asManager := newLedgerRouter(repo, counter, "MANAGER")
	req = httptest.NewRequest(http.MethodDelete, "/payments/1", nil)
	rec = httptest.NewRecorder()
	asManager.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 1, counter.counts["delete/SALE"])
}

func TestGetTargetEndpoint(t *testing.T) {
	repo := newMemoryLedgerRepo()
	repo.putTarget(TargetCustomer, 9, "250.00")
	router := newLedgerRouter(repo, nil, "TECHNICIAN")

	// Browsing targets still needs cashier rank.
	req := httptest.NewRequest(http.MethodGet, "/payments/targets/CUSTOMER/9", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	router = newLedgerRouter(repo, nil, "CASHIER")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/targets/CUSTOMER/9", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/payments/targets/CUSTOMER/404", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAnonymousPaymentGets401(t *testing.T) {
	repo := newMemoryLedgerRepo()
	router := newLedgerRouter(repo, nil, "")

	req := httptest.NewRequest(http.MethodPost, "/payments/", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

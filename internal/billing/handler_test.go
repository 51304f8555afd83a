package billing_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/shopledger/shopledger/internal/auth"
	"github.com/shopledger/shopledger/internal/billing"
	"github.com/shopledger/shopledger/internal/store/memory"
)

func newRouter(t *testing.T) (http.Handler, *fixture) {
	t.Helper()
	f := newFixture(t, memory.Options{Transactions: true}, nil)
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := auth.ContextWithClaims(req.Context(), auth.Claims{Role: auth.RoleStaff})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Route("/api/bills", billing.NewHandler(nil, f.svc, auth.Middleware{}).MountRoutes)
	return r, f
}

func TestHandlerCreateReportsShortItem(t *testing.T) {
	h, f := newRouter(t)
	f.stockUp(t, "Rice", 5)

	body := `{"customer_mobile":"9876543210","items":[{"name":"Rice","qty":"6","rate":"60"}]}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bills", strings.NewReader(body)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "Rice")
}

func TestHandlerCreateAndFetch(t *testing.T) {
	h, f := newRouter(t)
	f.stockUp(t, "Rice", 5)

	body := `{"customer_mobile":"9876543210","items":[{"name":"Rice","qty":"2","rate":"60"}],"upi_amount":"120"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bills", strings.NewReader(body)))
	require.Equal(t, http.StatusCreated, rec.Code)

	var bill billing.Bill
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bill))
	require.Equal(t, billing.PaymentUPI, bill.PaymentMode)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/bills/"+bill.ID.String(), nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlerUnknownBill(t *testing.T) {
	h, _ := newRouter(t)

	for _, path := range []string{"/api/bills/not-a-uuid", "/api/bills/2b7c1a36-0c55-4a8e-9a34-3c1f4c6b1b20"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusNotFound, rec.Code, path)
	}
}

func TestHandlerRejectsUnknownFields(t *testing.T) {
	h, _ := newRouter(t)

	body := `{"customer_mobile":"9876543210","items":[{"name":"Rice","qty":"1"}],"tip":"5"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bills", strings.NewReader(body)))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

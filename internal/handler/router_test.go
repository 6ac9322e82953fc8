package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
	"github.com/kmoussai/flash-loan-sub005/internal/handler"
	"github.com/kmoussai/flash-loan-sub005/internal/infra/observability"
	"github.com/kmoussai/flash-loan-sub005/internal/service"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testSecret = "test-secret"

// stubLoanStore backs the loans service in router tests.
type stubLoanStore struct {
	application *domain.LoanApplication
	terms       *domain.ContractTerms
}

func (s *stubLoanStore) GetApplication(_ context.Context, id string) (*domain.LoanApplication, error) {
	if s.application == nil {
		return nil, &domain.ErrNotFound{Resource: "application", ID: id}
	}
	return s.application, nil
}

func (s *stubLoanStore) UpdateApplicationStatus(context.Context, string, string) error { return nil }

func (s *stubLoanStore) SaveContractTerms(_ context.Context, terms *domain.ContractTerms) error {
	s.terms = terms
	return nil
}

func (s *stubLoanStore) GetContractTerms(_ context.Context, id string) (*domain.ContractTerms, error) {
	if s.terms == nil {
		return nil, &domain.ErrNotFound{Resource: "contract terms", ID: id}
	}
	return s.terms, nil
}

func (s *stubLoanStore) GetLoan(_ context.Context, id string) (*domain.Loan, error) {
	return nil, &domain.ErrNotFound{Resource: "loan", ID: id}
}

func (s *stubLoanStore) UpdateLoanBalance(context.Context, string, float64, string) error {
	return nil
}

func (s *stubLoanStore) SaveLoanSchedule(context.Context, string, []domain.PaymentBreakdown) error {
	return nil
}

func newTestRouter(store *stubLoanStore) http.Handler {
	metrics := observability.NewMetrics()
	logger := zap.NewNop()
	loans := service.NewLoans(store, metrics, logger, 48, 35, 1000)
	return handler.NewRouter(loans, nil, metrics, logger, testSecret)
}

func adminToken(t *testing.T, role string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "ops-user",
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(&stubLoanStore{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestReadyz(t *testing.T) {
	router := newTestRouter(&stubLoanStore{})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestMetrics(t *testing.T) {
	router := newTestRouter(&stubLoanStore{})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestQuote_Public(t *testing.T) {
	router := newTestRouter(&stubLoanStore{})

	body := `{
		"principal": 500,
		"annual_rate": 29,
		"frequency": "monthly",
		"number_of_payments": 3,
		"first_payment_date": "2024-01-15"
	}`
	req := httptest.NewRequest(http.MethodPost, "/v1/loans/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		QuoteID       string                    `json:"quote_id"`
		PaymentAmount float64                   `json:"payment_amount"`
		Schedule      []domain.PaymentBreakdown `json:"payment_schedule"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.QuoteID == "" {
		t.Error("expected a quote_id")
	}
	if len(resp.Schedule) != 3 {
		t.Errorf("expected 3 schedule entries, got %d", len(resp.Schedule))
	}
	if resp.PaymentAmount < 174.77 || resp.PaymentAmount > 174.81 {
		t.Errorf("unexpected payment amount %v", resp.PaymentAmount)
	}
}

func TestQuote_InvalidParams(t *testing.T) {
	router := newTestRouter(&stubLoanStore{})

	body := `{"principal": -5, "annual_rate": 29, "frequency": "monthly", "number_of_payments": 3, "first_payment_date": "2024-01-15"}`
	req := httptest.NewRequest(http.MethodPost, "/v1/loans/quote", strings.NewReader(body))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	router := newTestRouter(&stubLoanStore{})

	req := httptest.NewRequest(http.MethodGet, "/v1/applications/app-1/schedule", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}
}

func TestAdminRoutes_RejectNonAdminRole(t *testing.T) {
	router := newTestRouter(&stubLoanStore{})

	req := httptest.NewRequest(http.MethodGet, "/v1/applications/app-1/schedule", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "customer"))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403 for non-admin role, got %d", rec.Code)
	}
}

func TestCreateSchedule_Admin(t *testing.T) {
	store := &stubLoanStore{
		application: &domain.LoanApplication{
			ID:               "app-1",
			Principal:        1000,
			AnnualRate:       29,
			Frequency:        domain.FrequencyBiWeekly,
			NumberOfPayments: 8,
			FirstPaymentDate: "2024-05-03",
		},
	}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodPost, "/v1/applications/app-1/schedule", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "admin"))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if store.terms == nil {
		t.Fatal("expected contract terms to be persisted")
	}
	if len(store.terms.PaymentSchedule) != 8 {
		t.Errorf("expected 8 payments, got %d", len(store.terms.PaymentSchedule))
	}
}

func TestGetSchedule_NotFound(t *testing.T) {
	router := newTestRouter(&stubLoanStore{})

	req := httptest.NewRequest(http.MethodGet, "/v1/applications/ghost/schedule", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "admin"))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestOpsMetrics_Admin(t *testing.T) {
	router := newTestRouter(&stubLoanStore{})

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/metrics", nil)
	req.Header.Set("Authorization", "Bearer "+adminToken(t, "admin"))
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var snapshot domain.OpsMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &snapshot); err != nil {
		t.Fatalf("failed to decode snapshot: %v", err)
	}
}

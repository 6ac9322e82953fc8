// Package client holds HTTP clients for external vendors.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
	"github.com/kmoussai/flash-loan-sub005/internal/infra/resilience"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("zumrails")

// Zumrails calls the bank-verification vendor API and adapts its wire
// format to the domain. Implements port.VerificationProvider.
type Zumrails struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	cb         *gobreaker.CircuitBreaker
	cfg        resilience.Config
	bulkhead   *resilience.Bulkhead
	logger     *zap.Logger
}

// NewZumrails creates a Zum Rails client. The bulkhead caps concurrent
// vendor calls so a multi-account verification cannot flood the API.
func NewZumrails(httpClient *http.Client, baseURL, apiKey string, cb *gobreaker.CircuitBreaker, cfg resilience.Config, logger *zap.Logger) *Zumrails {
	maxConcurrency := cfg.MaxConcurrency
	if maxConcurrency <= 0 {
		maxConcurrency = 10
	}
	return &Zumrails{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiKey:     apiKey,
		cb:         cb,
		cfg:        cfg,
		bulkhead:   resilience.NewBulkhead(maxConcurrency),
		logger:     logger,
	}
}

// zumAccount is the vendor's account shape.
type zumAccount struct {
	ID            string `json:"Id"`
	InstitutionNm string `json:"InstitutionName"`
	AccountType   string `json:"AccountType"`
	AccountNumber string `json:"AccountNumber"`
	TransitNumber string `json:"TransitNumber"`
	InstitutionNo string `json:"InstitutionNumber"`
	RoutingCode   string `json:"RoutingCode"`
}

// zumTransaction is the vendor's transaction shape: dual optional
// credit/debit fields, kept as-is into the domain so feeds can be
// stored and replayed without loss.
type zumTransaction struct {
	ID          string   `json:"Id"`
	Date        string   `json:"Date"`
	Description string   `json:"Description"`
	Credit      *float64 `json:"Credit"`
	Debit       *float64 `json:"Debit"`
	Balance     float64  `json:"Balance"`
	Category    string   `json:"Category"`
}

// FetchAccounts lists the accounts attached to a verification request.
func (z *Zumrails) FetchAccounts(ctx context.Context, requestID string) ([]domain.BankAccountInfo, error) {
	ctx, span := tracer.Start(ctx, "Zumrails.FetchAccounts")
	defer span.End()
	span.SetAttributes(attribute.String("request.id", requestID))

	var accounts []domain.BankAccountInfo

	err := resilience.Execute(ctx, z.cb, z.cfg, func() error {
		path := fmt.Sprintf("api/aggregation/%s/accounts", requestID)
		body, err := z.doRequest(ctx, path)
		if err != nil {
			return err
		}

		var rows []zumAccount
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode accounts: %w", err)
		}

		accounts = make([]domain.BankAccountInfo, 0, len(rows))
		for _, r := range rows {
			accounts = append(accounts, domain.BankAccountInfo{
				BankName:      r.InstitutionNm,
				AccountType:   r.AccountType,
				AccountNumber: r.AccountNumber,
				Transit:       r.TransitNumber,
				Institution:   r.InstitutionNo,
				RoutingCode:   r.RoutingCode,
			})
		}
		return nil
	})

	if err != nil {
		return nil, wrapVendorErr(err)
	}
	return accounts, nil
}

// FetchTransactions pulls the raw feed for one account.
func (z *Zumrails) FetchTransactions(ctx context.Context, requestID, accountID string) ([]domain.BankTransaction, error) {
	ctx, span := tracer.Start(ctx, "Zumrails.FetchTransactions")
	defer span.End()
	span.SetAttributes(
		attribute.String("request.id", requestID),
		attribute.String("account.id", accountID),
	)

	var transactions []domain.BankTransaction

	err := resilience.Execute(ctx, z.cb, z.cfg, func() error {
		path := fmt.Sprintf("api/aggregation/%s/accounts/%s/transactions", requestID, accountID)
		body, err := z.doRequest(ctx, path)
		if err != nil {
			return err
		}

		var rows []zumTransaction
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode transactions: %w", err)
		}

		transactions = make([]domain.BankTransaction, 0, len(rows))
		for _, r := range rows {
			transactions = append(transactions, domain.BankTransaction{
				ID:          r.ID,
				Date:        r.Date,
				Description: r.Description,
				Credit:      r.Credit,
				Debit:       r.Debit,
				Balance:     r.Balance,
				Category:    r.Category,
			})
		}
		return nil
	})

	if err != nil {
		return nil, wrapVendorErr(err)
	}
	return transactions, nil
}

func (z *Zumrails) doRequest(ctx context.Context, path string) ([]byte, error) {
	if err := z.bulkhead.Acquire(ctx); err != nil {
		return nil, err
	}
	defer z.bulkhead.Release()

	url := fmt.Sprintf("%s/%s", z.baseURL, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", z.apiKey))
	req.Header.Set("Accept", "application/json")

	resp, err := z.httpClient.Do(req)
	if err != nil {
		z.logger.Error("zumrails: request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, &domain.ErrNotFound{Resource: "verification request", ID: path}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		z.logger.Warn("zumrails: non-2xx response",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return nil, fmt.Errorf("zumrails returned status %d", resp.StatusCode)
	}

	return body, nil
}

func wrapVendorErr(err error) error {
	switch err.(type) {
	case *domain.ErrNotFound, *domain.ErrCircuitOpen:
		return err
	}
	return &domain.ErrExternalService{Service: "zumrails", Err: err}
}

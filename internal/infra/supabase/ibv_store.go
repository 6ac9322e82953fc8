package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kmoussai/flash-loan-sub005/internal/domain"
	"github.com/kmoussai/flash-loan-sub005/internal/ibv"

	"go.opentelemetry.io/otel/attribute"
)

// --- IBV store (implements port.IBVStore) ---

// accountFeed is one account with its raw feed, stored as jsonb so the
// provider response can be replayed through the categorizer later.
type accountFeed struct {
	Info         domain.BankAccountInfo   `json:"account_info"`
	Transactions []domain.BankTransaction `json:"transactions"`
}

type ibvTransactionsRow struct {
	ApplicationID string        `json:"application_id"`
	Accounts      []accountFeed `json:"accounts"`
}

// SaveTransactions upserts the raw verification feed for an application.
func (c *Client) SaveTransactions(ctx context.Context, applicationID string, accounts []ibv.AccountInput) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveIBVTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", applicationID))

	feeds := make([]accountFeed, 0, len(accounts))
	for _, a := range accounts {
		feeds = append(feeds, accountFeed{Info: a.Info, Transactions: a.Transactions})
	}

	err := c.execute(ctx, func() error {
		_, err := c.doRequest(ctx, http.MethodPost, "ibv_transactions", ibvTransactionsRow{
			ApplicationID: applicationID,
			Accounts:      feeds,
		})
		return err
	})
	return wrapStoreErr("supabase/ibv_transactions", err)
}

// GetTransactions fetches the stored raw feed for an application.
func (c *Client) GetTransactions(ctx context.Context, applicationID string) ([]ibv.AccountInput, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetIBVTransactions")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", applicationID))

	var accounts []ibv.AccountInput

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("ibv_transactions?application_id=eq.%s&limit=1", applicationID)
		body, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "verification feed", ID: applicationID}
		}

		var rows []ibvTransactionsRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode verification feed: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "verification feed", ID: applicationID}
		}

		accounts = make([]ibv.AccountInput, 0, len(rows[0].Accounts))
		for _, f := range rows[0].Accounts {
			accounts = append(accounts, ibv.AccountInput{Info: f.Info, Transactions: f.Transactions})
		}
		return nil
	})

	if err != nil {
		return nil, wrapStoreErr("supabase/ibv_transactions", err)
	}
	return accounts, nil
}

type ibvSummaryRow struct {
	ApplicationID string                  `json:"application_id"`
	Provider      string                  `json:"provider"`
	Accounts      []domain.AccountSummary `json:"accounts"`
	GeneratedAt   time.Time               `json:"generated_at"`
}

// SaveSummary upserts the derived verification summary.
func (c *Client) SaveSummary(ctx context.Context, summary *domain.IBVSummary) error {
	ctx, span := tracer.Start(ctx, "Supabase.SaveIBVSummary")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", summary.ApplicationID))

	err := c.execute(ctx, func() error {
		_, err := c.doRequest(ctx, http.MethodPost, "ibv_summaries", ibvSummaryRow{
			ApplicationID: summary.ApplicationID,
			Provider:      summary.Provider,
			Accounts:      summary.Accounts,
			GeneratedAt:   summary.GeneratedAt,
		})
		return err
	})
	return wrapStoreErr("supabase/ibv_summaries", err)
}

// GetSummary fetches the stored verification summary.
func (c *Client) GetSummary(ctx context.Context, applicationID string) (*domain.IBVSummary, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetIBVSummary")
	defer span.End()
	span.SetAttributes(attribute.String("application.id", applicationID))

	var summary *domain.IBVSummary

	err := c.execute(ctx, func() error {
		path := fmt.Sprintf("ibv_summaries?application_id=eq.%s&limit=1", applicationID)
		body, err := c.doRequest(ctx, http.MethodGet, path, nil)
		if err != nil {
			return err
		}

		if body == nil || string(body) == "[]" {
			return &domain.ErrNotFound{Resource: "verification summary", ID: applicationID}
		}

		var rows []ibvSummaryRow
		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to decode verification summary: %w", err)
		}
		if len(rows) == 0 {
			return &domain.ErrNotFound{Resource: "verification summary", ID: applicationID}
		}

		r := rows[0]
		summary = &domain.IBVSummary{
			ApplicationID: r.ApplicationID,
			Provider:      r.Provider,
			Accounts:      r.Accounts,
			GeneratedAt:   r.GeneratedAt,
		}
		return nil
	})

	if err != nil {
		return nil, wrapStoreErr("supabase/ibv_summaries", err)
	}
	return summary, nil
}

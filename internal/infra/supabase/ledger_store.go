package supabase

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"

	"github.com/docledger/docledger-go/internal/domain"
)

// ============================================================
// Ledger store — implements port.LedgerStore on PostgREST tables
// ============================================================

// Table names. Each table has an "id" text primary key; upserts replace
// the whole row.
const (
	tableAccounts  = "accounts"
	tableSuppliers = "suppliers"
	tableExpenses  = "expenses"
	tableTimeline  = "timeline_entries"
	tableDocuments = "documents"
)

func (c *Client) UpsertAccount(ctx context.Context, account *domain.Account) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertAccount")
	defer span.End()
	span.SetAttributes(attribute.String("account.id", account.ID))

	err := c.execute(ctx, func() error {
		return c.doUpsert(ctx, tableAccounts, account)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/accounts", Err: err}
	}
	return nil
}

func (c *Client) UpsertSupplier(ctx context.Context, supplier *domain.Supplier) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertSupplier")
	defer span.End()
	span.SetAttributes(attribute.String("supplier.id", supplier.ID))

	err := c.execute(ctx, func() error {
		return c.doUpsert(ctx, tableSuppliers, supplier)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/suppliers", Err: err}
	}
	return nil
}

func (c *Client) UpsertExpense(ctx context.Context, expense *domain.Expense) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertExpense")
	defer span.End()
	span.SetAttributes(attribute.String("expense.id", expense.ID))

	err := c.execute(ctx, func() error {
		return c.doUpsert(ctx, tableExpenses, expense)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}
	return nil
}

func (c *Client) UpsertTimelineEntry(ctx context.Context, entry *domain.TimelineEntry) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertTimelineEntry")
	defer span.End()
	span.SetAttributes(attribute.String("timeline.id", entry.ID))

	err := c.execute(ctx, func() error {
		return c.doUpsert(ctx, tableTimeline, entry)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/timeline", Err: err}
	}
	return nil
}

func (c *Client) UpsertDocument(ctx context.Context, doc *domain.DocumentMetadata) error {
	ctx, span := tracer.Start(ctx, "Supabase.UpsertDocument")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", doc.ID))

	err := c.execute(ctx, func() error {
		return c.doUpsert(ctx, tableDocuments, doc)
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/documents", Err: err}
	}
	return nil
}

func (c *Client) ListAccounts(ctx context.Context) ([]domain.Account, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListAccounts")
	defer span.End()

	var accounts []domain.Account
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, tableAccounts+"?order=id.asc")
		if err != nil {
			return err
		}
		accounts = []domain.Account{}
		if body == nil {
			return nil
		}
		if err := json.Unmarshal(body, &accounts); err != nil {
			return fmt.Errorf("decode accounts: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/accounts", Err: err}
	}
	return accounts, nil
}

func (c *Client) ListSuppliers(ctx context.Context) ([]domain.Supplier, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListSuppliers")
	defer span.End()

	var suppliers []domain.Supplier
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, tableSuppliers+"?order=id.asc")
		if err != nil {
			return err
		}
		suppliers = []domain.Supplier{}
		if body == nil {
			return nil
		}
		if err := json.Unmarshal(body, &suppliers); err != nil {
			return fmt.Errorf("decode suppliers: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/suppliers", Err: err}
	}
	return suppliers, nil
}

func (c *Client) ListExpenses(ctx context.Context) ([]domain.Expense, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListExpenses")
	defer span.End()

	var expenses []domain.Expense
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, tableExpenses+"?order=due_date.asc")
		if err != nil {
			return err
		}
		expenses = []domain.Expense{}
		if body == nil {
			return nil
		}
		if err := json.Unmarshal(body, &expenses); err != nil {
			return fmt.Errorf("decode expenses: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}
	return expenses, nil
}

func (c *Client) ListTimelineEntries(ctx context.Context) ([]domain.TimelineEntry, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListTimelineEntries")
	defer span.End()

	var entries []domain.TimelineEntry
	err := c.execute(ctx, func() error {
		body, err := c.doRequest(ctx, http.MethodGet, tableTimeline+"?order=date.asc")
		if err != nil {
			return err
		}
		entries = []domain.TimelineEntry{}
		if body == nil {
			return nil
		}
		if err := json.Unmarshal(body, &entries); err != nil {
			return fmt.Errorf("decode timeline entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, &domain.ErrExternalService{Service: "supabase/timeline", Err: err}
	}
	return entries, nil
}

func (c *Client) DeleteDocument(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteDocument")
	defer span.End()
	span.SetAttributes(attribute.String("document.id", id))

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, fmt.Sprintf("%s?id=eq.%s", tableDocuments, id))
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/documents", Err: err}
	}
	return nil
}

func (c *Client) DeleteExpense(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteExpense")
	defer span.End()
	span.SetAttributes(attribute.String("expense.id", id))

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, fmt.Sprintf("%s?id=eq.%s", tableExpenses, id))
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/expenses", Err: err}
	}
	return nil
}

func (c *Client) DeleteTimelineEntry(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteTimelineEntry")
	defer span.End()
	span.SetAttributes(attribute.String("timeline.id", id))

	err := c.execute(ctx, func() error {
		return c.doDelete(ctx, fmt.Sprintf("%s?id=eq.%s", tableTimeline, id))
	})
	if err != nil {
		return &domain.ErrExternalService{Service: "supabase/timeline", Err: err}
	}
	return nil
}

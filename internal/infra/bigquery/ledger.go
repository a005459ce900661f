// Package bigquery mirrors ingested transactions and goal contributions into
// an append-only BigQuery ledger for reporting.
package bigquery

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/goaltracker/internal/domain"
	"github.com/dvloznov/goaltracker/internal/logger"
	"github.com/dvloznov/goaltracker/internal/pipeline"
	"google.golang.org/api/iterator"
)

const (
	transactionsTable  = "transactions"
	contributionsTable = "goal_contributions"
)

// LedgerRepository writes ledger rows to one dataset. It implements
// pipeline.LedgerSink.
type LedgerRepository struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	ownClient bool
	now       func() time.Time
}

var _ pipeline.LedgerSink = (*LedgerRepository)(nil)

// NewLedgerRepository creates a repository with its own client.
func NewLedgerRepository(ctx context.Context, projectID, datasetID string) (*LedgerRepository, error) {
	if projectID == "" || datasetID == "" {
		return nil, fmt.Errorf("NewLedgerRepository: project and dataset are required")
	}
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewLedgerRepository: bigquery client: %w", err)
	}
	repo := NewLedgerRepositoryWithClient(client, projectID, datasetID)
	repo.ownClient = true
	return repo, nil
}

// NewLedgerRepositoryWithClient creates a repository on an existing client.
// The caller keeps ownership of client.
func NewLedgerRepositoryWithClient(client *bigquery.Client, projectID, datasetID string) *LedgerRepository {
	return &LedgerRepository{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		now:       time.Now,
	}
}

// Close releases the client if the repository created it.
func (r *LedgerRepository) Close() error {
	if r.ownClient {
		return r.client.Close()
	}
	return nil
}

func (r *LedgerRepository) table(name string) *bigquery.Table {
	return r.client.DatasetInProject(r.projectID, r.datasetID).Table(name)
}

// RecordTransaction appends one transaction row.
func (r *LedgerRepository) RecordTransaction(ctx context.Context, uid string, tx domain.Transaction) error {
	row := NewTransactionRow(uid, tx, r.now().UTC())
	if err := r.table(transactionsTable).Inserter().Put(ctx, row); err != nil {
		return fmt.Errorf("RecordTransaction: inserting row: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().Str("transaction_id", tx.ID).Msg("Transaction recorded in ledger")
	return nil
}

// RecordContributions appends one row per goal that tx contributed to.
func (r *LedgerRepository) RecordContributions(ctx context.Context, uid string, tx domain.Transaction, contributions []pipeline.Contribution) error {
	if len(contributions) == 0 {
		return nil
	}

	rows := NewContributionRows(uid, tx, contributions, r.now().UTC())
	if err := r.table(contributionsTable).Inserter().Put(ctx, rows); err != nil {
		return fmt.Errorf("RecordContributions: inserting rows: %w", err)
	}

	log := logger.FromContext(ctx)
	log.Debug().
		Str("transaction_id", tx.ID).
		Int("contributions", len(rows)).
		Msg("Contributions recorded in ledger")
	return nil
}

// QueryContributions returns a goal's contribution history, oldest first.
func (r *LedgerRepository) QueryContributions(ctx context.Context, uid, goalID string) ([]ContributionRecord, error) {
	q := r.client.Query(fmt.Sprintf(`
		SELECT
			c.contribution_id,
			c.user_id,
			c.goal_id,
			c.goal_name,
			c.transaction_id,
			c.transaction_date,
			c.amount,
			c.balance_after,
			c.created_ts
		FROM `+"`%s.%s.%s`"+` c
		WHERE c.user_id = @user_id
		  AND c.goal_id = @goal_id
		ORDER BY c.transaction_date, c.created_ts
	`, r.projectID, r.datasetID, contributionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "user_id", Value: uid},
		{Name: "goal_id", Value: goalID},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("QueryContributions: query read: %w", err)
	}

	var records []ContributionRecord
	for {
		var row ContributionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("QueryContributions: iter next: %w", err)
		}
		records = append(records, row.Record())
	}

	return records, nil
}

package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"bridgeScope/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS reconciliation_runs (
	generation        TEXT PRIMARY KEY,
	network_id        BIGINT NOT NULL,
	taken_at          TIMESTAMPTZ NOT NULL,
	total_assets      NUMERIC NOT NULL,
	total_liabilities NUMERIC NOT NULL,
	difference        NUMERIC NOT NULL,
	loaded_tokens     INT NOT NULL,
	total_tokens      INT NOT NULL,
	balanced_tokens   INT NOT NULL,
	all_loaded        BOOLEAN NOT NULL
);
CREATE TABLE IF NOT EXISTS token_reconciliations (
	generation           TEXT NOT NULL REFERENCES reconciliation_runs (generation) ON DELETE CASCADE,
	token_key            TEXT NOT NULL,
	origin_network_id    BIGINT NOT NULL,
	origin_token_address TEXT NOT NULL,
	name                 TEXT NOT NULL,
	symbol               TEXT NOT NULL,
	decimals             SMALLINT NOT NULL,
	assets               NUMERIC NOT NULL,
	total_liabilities    NUMERIC NOT NULL,
	difference           NUMERIC NOT NULL,
	is_balanced          BOOLEAN NOT NULL,
	failed_fetches       INT NOT NULL,
	PRIMARY KEY (generation, token_key)
);
`

// Store writes reconciliation snapshots to Postgres.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the report tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutSnapshot upserts the run summary and its token rows in one transaction.
func (s *Store) PutSnapshot(ctx context.Context, snapshot model.Snapshot) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		summary := snapshot.Summary
		if _, err := tx.Exec(ctx, `
			INSERT INTO reconciliation_runs (
				generation, network_id, taken_at, total_assets, total_liabilities, difference,
				loaded_tokens, total_tokens, balanced_tokens, all_loaded
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
			ON CONFLICT (generation)
			DO UPDATE SET
				taken_at = EXCLUDED.taken_at,
				total_assets = EXCLUDED.total_assets,
				total_liabilities = EXCLUDED.total_liabilities,
				difference = EXCLUDED.difference,
				loaded_tokens = EXCLUDED.loaded_tokens,
				total_tokens = EXCLUDED.total_tokens,
				balanced_tokens = EXCLUDED.balanced_tokens,
				all_loaded = EXCLUDED.all_loaded
		`,
			snapshot.Generation,
			int64(snapshot.NetworkID),
			snapshot.TakenAt,
			summary.TotalAssets,
			summary.TotalLiabilities,
			summary.Difference,
			summary.LoadedTokens,
			summary.TotalTokens,
			summary.BalancedTokens,
			summary.AllLoaded,
		); err != nil {
			return fmt.Errorf("upsert run: %w", err)
		}

		if len(snapshot.Tokens) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		for _, tok := range snapshot.Tokens {
			batch.Queue(`
				INSERT INTO token_reconciliations (
					generation, token_key, origin_network_id, origin_token_address, name, symbol, decimals,
					assets, total_liabilities, difference, is_balanced, failed_fetches
				) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
				ON CONFLICT (generation, token_key)
				DO UPDATE SET
					assets = EXCLUDED.assets,
					total_liabilities = EXCLUDED.total_liabilities,
					difference = EXCLUDED.difference,
					is_balanced = EXCLUDED.is_balanced,
					failed_fetches = EXCLUDED.failed_fetches
			`,
				snapshot.Generation,
				tok.Key,
				int64(tok.OriginNetworkID),
				tok.OriginTokenAddress,
				tok.Name,
				tok.Symbol,
				int16(tok.Decimals),
				tok.Assets,
				tok.TotalLiabilities,
				tok.Difference,
				tok.IsBalanced,
				tok.FailedFetches,
			)
		}

		br := tx.SendBatch(ctx, batch)
		defer br.Close()

		for range snapshot.Tokens {
			if _, err := br.Exec(); err != nil {
				return fmt.Errorf("upsert token: %w", err)
			}
		}
		return nil
	})
}

// Package pgstore provides a PostgreSQL implementation of store.Store for
// multi-device deployments.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jagalabs/scamguard/pkg/cloud"
	"github.com/jagalabs/scamguard/pkg/fusion"
	"github.com/jagalabs/scamguard/pkg/keywords"
	"github.com/jagalabs/scamguard/pkg/store"
)

//go:embed schema.sql
var schema string

// Store persists alerts in PostgreSQL. Concurrent inserts are serialized by
// the database; no additional locking is needed.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to PostgreSQL, applies the schema, and returns a ready Store.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Store{pool: pool}, nil
}

// Close shuts down the connection pool.
func (s *Store) Close() {
	s.pool.Close()
}

const alertColumns = `id, created_at, origin, risk_level, category, tactics, snippet,
	url, headline, sender_label, full_text, explanation, explanation_lang,
	heuristic_score, classifier_score`

// Create inserts one alert.
func (s *Store) Create(ctx context.Context, a *store.Alert) error {
	tacticsJSON, err := json.Marshal(a.Tactics)
	if err != nil {
		return fmt.Errorf("marshal tactics: %w", err)
	}

	var explanationJSON []byte
	if a.Explanation != nil {
		explanationJSON, err = json.Marshal(a.Explanation)
		if err != nil {
			return fmt.Errorf("marshal explanation: %w", err)
		}
	}

	query := `INSERT INTO alerts (` + alertColumns + `)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`

	_, err = s.pool.Exec(ctx, query,
		a.ID, a.CreatedAt, string(a.Origin), string(a.RiskLevel), a.Category,
		tacticsJSON, a.Snippet, nullable(a.URL), a.Headline,
		nullable(a.SenderLabel), nullable(a.FullText),
		explanationJSON, nullable(a.ExplanationLanguage),
		a.HeuristicScore, a.ClassifierScore,
	)
	if err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

// Get retrieves an alert by id.
func (s *Store) Get(ctx context.Context, id string) (*store.Alert, error) {
	query := `SELECT ` + alertColumns + ` FROM alerts WHERE id = $1`
	return scanAlert(s.pool.QueryRow(ctx, query, id))
}

// Delete removes an alert by id.
func (s *Store) Delete(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM alerts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete alert: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

// CountSince returns how many alerts were created at or after ts.
func (s *Store) CountSince(ctx context.Context, ts time.Time) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM alerts WHERE created_at >= $1`, ts).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count alerts: %w", err)
	}
	return n, nil
}

// CategoryCounts aggregates alert categories created at or after ts.
func (s *Store) CategoryCounts(ctx context.Context, ts time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT category, COUNT(*) FROM alerts WHERE created_at >= $1 GROUP BY category`, ts)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var category string
		var n int
		if err := rows.Scan(&category, &n); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		counts[category] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return counts, nil
}

// TacticCounts aggregates matched tactics across alerts created at or after ts.
func (s *Store) TacticCounts(ctx context.Context, ts time.Time) (map[string]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.tactic, COUNT(*)
		 FROM alerts, jsonb_array_elements_text(tactics) AS t(tactic)
		 WHERE created_at >= $1 GROUP BY t.tactic`, ts)
	if err != nil {
		return nil, fmt.Errorf("query tactics: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var tactic string
		var n int
		if err := rows.Scan(&tactic, &n); err != nil {
			return nil, fmt.Errorf("scan tactic: %w", err)
		}
		counts[tactic] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tactics: %w", err)
	}
	return counts, nil
}

// nullable maps empty strings to SQL NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func scanAlert(row pgx.Row) (*store.Alert, error) {
	var (
		a               store.Alert
		origin          string
		riskLevel       string
		tacticsJSON     []byte
		url             *string
		senderLabel     *string
		fullText        *string
		explanationJSON []byte
		explanationLang *string
	)

	err := row.Scan(
		&a.ID, &a.CreatedAt, &origin, &riskLevel, &a.Category,
		&tacticsJSON, &a.Snippet, &url, &a.Headline,
		&senderLabel, &fullText, &explanationJSON, &explanationLang,
		&a.HeuristicScore, &a.ClassifierScore,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	a.Origin = store.Origin(origin)
	a.RiskLevel = fusion.RiskLevel(riskLevel)

	var tactics []keywords.Tactic
	if err := json.Unmarshal(tacticsJSON, &tactics); err != nil {
		return nil, fmt.Errorf("unmarshal tactics: %w", err)
	}
	a.Tactics = tactics

	if url != nil {
		a.URL = *url
	}
	if senderLabel != nil {
		a.SenderLabel = *senderLabel
	}
	if fullText != nil {
		a.FullText = *fullText
	}
	if explanationLang != nil {
		a.ExplanationLanguage = *explanationLang
	}
	if len(explanationJSON) > 0 {
		var exp cloud.Explanation
		if err := json.Unmarshal(explanationJSON, &exp); err != nil {
			return nil, fmt.Errorf("unmarshal explanation: %w", err)
		}
		a.Explanation = &exp
	}

	return &a, nil
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/solatis/formatkeeper/internal/types"
)

var (
	// ErrRunNotFound indicates no recorded run has the requested ID.
	ErrRunNotFound = errors.New("check run not found")

	// ErrAPIKeyNotFound indicates no API key matches.
	ErrAPIKeyNotFound = errors.New("API key not found")

	// ErrMigrationsPending indicates the schema is behind the binary.
	ErrMigrationsPending = errors.New("migrations pending (run 'formatkeeper migrate up')")
)

// DefaultListLimit applies when ListRuns is called without a limit.
const DefaultListLimit = 20

// RunSummary is one row of the run history.
type RunSummary struct {
	ID              types.RunID `db:"run_id" json:"run_id"`
	Document        string      `db:"document" json:"document"`
	DocumentSHA256  string      `db:"document_sha256" json:"document_sha256"`
	RulesSHA256     string      `db:"rules_sha256" json:"rules_sha256"`
	StartedAt       time.Time   `db:"started_at" json:"started_at"`
	DurationNS      int64       `db:"duration_ns" json:"duration_ns"`
	BlockCount      int         `db:"block_count" json:"block_count"`
	DiagnosticCount int         `db:"diagnostic_count" json:"diagnostic_count"`
}

// APIKey is a stored key. The key itself is never stored, only its HMAC.
type APIKey struct {
	ID         string       `db:"api_key_id"`
	Name       string       `db:"name"`
	SecretID   string       `db:"secret_id"`
	CreatedAt  time.Time    `db:"created_at"`
	LastUsedAt sql.NullTime `db:"last_used_at"`
	RevokedAt  sql.NullTime `db:"revoked_at"`
}

type diagnosticRow struct {
	BlockSeq  int            `db:"block_seq"`
	DetailSeq int            `db:"detail_seq"`
	ParaIdx   int            `db:"para_idx"`
	StyleName string         `db:"style_name"`
	Snippet   string         `db:"text_snippet"`
	FullText  string         `db:"full_text"`
	Category  string         `db:"category"`
	RuleKey   string         `db:"rule_key"`
	Expected  string         `db:"expected"`
	Actual    string         `db:"actual"`
	RunIndex  sql.NullInt64  `db:"run_index"`
	RunText   sql.NullString `db:"run_text"`
	LocStart  sql.NullInt64  `db:"loc_start"`
	LocEnd    sql.NullInt64  `db:"loc_end"`
}

// Store persists check runs and API keys.
type Store struct {
	db  *sqlx.DB
	q   *Queries
	log *slog.Logger
}

// NewStore wraps an open database. It does not migrate.
func NewStore(db *sqlx.DB, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	q, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, q: q, log: log}, nil
}

// OpenStore opens dbURL and fails with ErrMigrationsPending when the
// schema is not current.
func OpenStore(dbURL string, log *slog.Logger) (*Store, error) {
	database, err := Open(dbURL)
	if err != nil {
		return nil, err
	}
	pending, err := Pending(database)
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to check migrations: %w", err)
	}
	if pending {
		database.Close()
		return nil, ErrMigrationsPending
	}
	s, err := NewStore(database, log)
	if err != nil {
		database.Close()
		return nil, err
	}
	return s, nil
}

// DB returns the underlying handle.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) withTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// SaveRun records a run and all of its diagnostics in one transaction.
func (s *Store) SaveRun(ctx context.Context, run *types.CheckRun) error {
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.q.ExecTx(ctx, tx, "insert-run",
			string(run.ID), run.Document, run.DocumentSHA256, run.RulesSHA256,
			run.StartedAt.UTC(), run.Duration.Nanoseconds(), len(run.Blocks), run.DiagnosticCount())
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		for bi, b := range run.Blocks {
			for di, d := range b.Details {
				row := toRow(bi, di, b, d)
				_, err := s.q.ExecTx(ctx, tx, "insert-diagnostic",
					string(run.ID), row.BlockSeq, row.DetailSeq, row.ParaIdx, row.StyleName,
					row.Snippet, row.FullText, row.Category, row.RuleKey, row.Expected, row.Actual,
					row.RunIndex, row.RunText, row.LocStart, row.LocEnd)
				if err != nil {
					return fmt.Errorf("insert diagnostic %d/%d: %w", bi, di, err)
				}
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	s.log.Debug("run recorded", "run_id", run.ID, "diagnostics", run.DiagnosticCount())
	return nil
}

func toRow(bi, di int, b types.ParagraphErrorBlock, d types.Diagnostic) diagnosticRow {
	row := diagnosticRow{
		BlockSeq:  bi,
		DetailSeq: di,
		ParaIdx:   b.ParaIndex,
		StyleName: b.StyleName,
		Snippet:   b.Snippet,
		FullText:  b.FullText,
		Category:  string(d.Category),
		RuleKey:   d.RuleKey,
		Expected:  d.Expected,
		Actual:    d.Actual,
	}
	if d.RunIndex != nil {
		row.RunIndex = sql.NullInt64{Int64: int64(*d.RunIndex), Valid: true}
		row.RunText = sql.NullString{String: d.RunText, Valid: true}
	}
	if d.Location != nil {
		row.LocStart = sql.NullInt64{Int64: int64(d.Location.Start), Valid: true}
		row.LocEnd = sql.NullInt64{Int64: int64(d.Location.End), Valid: true}
	}
	return row
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	runs := []RunSummary{}
	if err := s.q.Select(ctx, "list-runs", &runs, limit); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun loads a recorded run with its blocks.
func (s *Store) GetRun(ctx context.Context, id types.RunID) (*types.CheckRun, error) {
	var sum RunSummary
	err := s.q.Get(ctx, "get-run", &sum, string(id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}

	var rows []diagnosticRow
	if err := s.q.Select(ctx, "get-run-diagnostics", &rows, string(id)); err != nil {
		return nil, fmt.Errorf("get diagnostics of %s: %w", id, err)
	}

	run := &types.CheckRun{
		ID:             sum.ID,
		Document:       sum.Document,
		DocumentSHA256: sum.DocumentSHA256,
		RulesSHA256:    sum.RulesSHA256,
		StartedAt:      sum.StartedAt.UTC(),
		Duration:       time.Duration(sum.DurationNS),
		Blocks:         []types.ParagraphErrorBlock{},
	}
	seq := -1
	for _, r := range rows {
		if r.BlockSeq != seq {
			run.Blocks = append(run.Blocks, types.ParagraphErrorBlock{
				ParaIndex: r.ParaIdx,
				StyleName: r.StyleName,
				Snippet:   r.Snippet,
				FullText:  r.FullText,
			})
			seq = r.BlockSeq
		}
		b := &run.Blocks[len(run.Blocks)-1]
		b.Details = append(b.Details, fromRow(r))
	}
	return run, nil
}

func fromRow(r diagnosticRow) types.Diagnostic {
	d := types.Diagnostic{
		Category: types.Category(r.Category),
		RuleKey:  r.RuleKey,
		Expected: r.Expected,
		Actual:   r.Actual,
	}
	if r.RunIndex.Valid {
		idx := int(r.RunIndex.Int64)
		d.RunIndex = &idx
		d.RunText = r.RunText.String
	}
	if r.LocStart.Valid && r.LocEnd.Valid {
		d.Location = &types.Location{Start: int(r.LocStart.Int64), End: int(r.LocEnd.Int64)}
	}
	return d
}

// CreateAPIKey stores the HMAC of a new key under name.
func (s *Store) CreateAPIKey(ctx context.Context, name, secretID string, keyHash []byte) (*APIKey, error) {
	key := &APIKey{
		ID:        uuid.Must(uuid.NewV7()).String(),
		Name:      name,
		SecretID:  secretID,
		CreatedAt: time.Now().UTC(),
	}
	err := s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := s.q.ExecTx(ctx, tx, "insert-api-key", key.ID, key.Name, key.SecretID, keyHash, key.CreatedAt)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create API key %q: %w", name, err)
	}
	return key, nil
}

// GetAPIKeyByHash finds a key by its HMAC, revoked or not.
func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash []byte) (*APIKey, error) {
	var key APIKey
	err := s.q.Get(ctx, "get-api-key-by-hash", &key, keyHash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAPIKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database error: %w", err)
	}
	return &key, nil
}

// ListAPIKeys returns all keys in creation order.
func (s *Store) ListAPIKeys(ctx context.Context) ([]APIKey, error) {
	keys := []APIKey{}
	if err := s.q.Select(ctx, "list-api-keys", &keys); err != nil {
		return nil, fmt.Errorf("list API keys: %w", err)
	}
	return keys, nil
}

// TouchAPIKey sets last_used_at.
func (s *Store) TouchAPIKey(ctx context.Context, id string, at time.Time) error {
	_, err := s.q.Exec(ctx, "update-last-used", at.UTC(), id)
	return err
}

// RevokeAPIKey marks the named key revoked.
func (s *Store) RevokeAPIKey(ctx context.Context, name string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		res, err := s.q.ExecTx(ctx, tx, "revoke-api-key", time.Now().UTC(), name)
		if err != nil {
			return fmt.Errorf("revoke API key %q: %w", name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", ErrAPIKeyNotFound, name)
		}
		return nil
	})
}

package selection

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/factorlens/internal/contracts"
	"github.com/wonny/factorlens/pkg/metrics"
)

// ErrSnapshotNotFound is returned when no snapshot matches the query
var ErrSnapshotNotFound = errors.New("ranking snapshot not found")

// Repository persists ranking snapshots
// ⭐ SSOT: 랭킹 스냅샷 저장/조회는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new snapshot repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// SnapshotParams records the inputs of a ranking run
type SnapshotParams struct {
	ProfileHash   string               `json:"profile_hash,omitempty"`
	Weights       *contracts.WeightMap `json:"weights"`
	SectorNeutral bool                 `json:"sector_neutral"`
	DipWeight     float64              `json:"dip_weight"`
	UseDipBonus   bool                 `json:"use_dip_bonus"`
	Tickers       []string             `json:"tickers,omitempty"`
}

// NewSnapshotParams captures opts (and an optional profile hash)
func NewSnapshotParams(opts Options, profileHash string, tickers []string) SnapshotParams {
	return SnapshotParams{
		ProfileHash:   profileHash,
		Weights:       opts.Weights,
		SectorNeutral: opts.SectorNeutral,
		DipWeight:     opts.DipWeight,
		UseDipBonus:   opts.UseDipBonus,
		Tickers:       tickers,
	}
}

// SnapshotEntry is one ranked row. Payload is the full record JSON.
type SnapshotEntry struct {
	Position  int             `json:"position"`
	Ticker    string          `json:"ticker"`
	Score     float64         `json:"score"`
	BaseScore float64         `json:"base_score"`
	DipBonus  float64         `json:"dip_bonus"`
	Payload   json.RawMessage `json:"payload"`
}

// Snapshot is a stored ranking run
type Snapshot struct {
	RunID     string          `json:"run_id"`
	Mode      string          `json:"mode"`
	Params    SnapshotParams  `json:"params"`
	CreatedAt time.Time       `json:"created_at"`
	Entries   []SnapshotEntry `json:"entries"`
}

// FundamentalsEntries converts records into snapshot rows
func FundamentalsEntries(records []contracts.ScoreRecord) ([]SnapshotEntry, error) {
	entries := make([]SnapshotEntry, len(records))
	for i, r := range records {
		payload, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal %s: %w", r.Ticker, err)
		}
		entries[i] = SnapshotEntry{
			Position:  i + 1,
			Ticker:    r.Ticker,
			Score:     r.Score,
			BaseScore: r.BaseScore,
			DipBonus:  r.DipBonus,
			Payload:   payload,
		}
	}
	return entries, nil
}

// CandidateEntries converts scored candidates into snapshot rows
func CandidateEntries(ranked []contracts.CandidateScore) ([]SnapshotEntry, error) {
	entries := make([]SnapshotEntry, len(ranked))
	for i, r := range ranked {
		payload, err := json.Marshal(r)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal candidate %d: %w", i, err)
		}
		entries[i] = SnapshotEntry{
			Position:  i + 1,
			Ticker:    r.Candidate.Ticker(),
			Score:     r.Score,
			BaseScore: r.BaseScore,
			DipBonus:  r.DipBonus,
			Payload:   payload,
		}
	}
	return entries, nil
}

// SaveFundamentals stores a fundamentals-mode run and returns its run id
func (r *Repository) SaveFundamentals(ctx context.Context, params SnapshotParams, records []contracts.ScoreRecord) (string, error) {
	entries, err := FundamentalsEntries(records)
	if err != nil {
		return "", err
	}
	return r.save(ctx, metrics.ModeFundamentals, params, entries)
}

// SaveCandidates stores a candidates-mode run and returns its run id
func (r *Repository) SaveCandidates(ctx context.Context, params SnapshotParams, ranked []contracts.CandidateScore) (string, error) {
	entries, err := CandidateEntries(ranked)
	if err != nil {
		return "", err
	}
	return r.save(ctx, metrics.ModeCandidates, params, entries)
}

func (r *Repository) save(ctx context.Context, mode string, params SnapshotParams, entries []SnapshotEntry) (string, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return "", fmt.Errorf("failed to marshal params: %w", err)
	}

	runID := uuid.NewString()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		"INSERT INTO ranking.runs (run_id, mode, params) VALUES ($1, $2, $3)",
		runID, mode, paramsJSON,
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	query := `
		INSERT INTO ranking.results (
			run_id, position, ticker, score, base_score, dip_bonus, payload
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	batch := &pgx.Batch{}
	for _, e := range entries {
		batch.Queue(query, runID, e.Position, e.Ticker, e.Score, e.BaseScore, e.DipBonus, []byte(e.Payload))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return "", fmt.Errorf("failed to insert ranking results: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}

	return runID, nil
}

// Latest returns the most recent snapshot for mode ("" = any mode)
func (r *Repository) Latest(ctx context.Context, mode string) (*Snapshot, error) {
	query := `
		SELECT run_id
		FROM ranking.runs
		WHERE $1 = '' OR mode = $1
		ORDER BY created_at DESC
		LIMIT 1
	`

	var runID string
	err := r.pool.QueryRow(ctx, query, mode).Scan(&runID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest run: %w", err)
	}

	return r.Get(ctx, runID)
}

// Get loads one snapshot with its entries in rank order
func (r *Repository) Get(ctx context.Context, runID string) (*Snapshot, error) {
	snap := Snapshot{RunID: runID}
	var paramsJSON []byte

	err := r.pool.QueryRow(ctx,
		"SELECT mode, params, created_at FROM ranking.runs WHERE run_id = $1", runID,
	).Scan(&snap.Mode, &paramsJSON, &snap.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSnapshotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}

	if err := json.Unmarshal(paramsJSON, &snap.Params); err != nil {
		return nil, fmt.Errorf("failed to unmarshal params: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT position, ticker, score, base_score, dip_bonus, payload
		FROM ranking.results
		WHERE run_id = $1
		ORDER BY position ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query ranking results: %w", err)
	}
	defer rows.Close()

	snap.Entries = make([]SnapshotEntry, 0)
	for rows.Next() {
		var e SnapshotEntry
		var payload []byte
		if err := rows.Scan(&e.Position, &e.Ticker, &e.Score, &e.BaseScore, &e.DipBonus, &payload); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		e.Payload = payload
		snap.Entries = append(snap.Entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return &snap, nil
}

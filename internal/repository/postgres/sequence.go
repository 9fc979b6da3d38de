package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/hms-core/internal/model"
	"github.com/jwalitptl/hms-core/internal/repository"
	apperrors "github.com/jwalitptl/hms-core/pkg/errors"
)

type sequenceRepository struct {
	BaseRepository
}

func NewSequenceRepository(db *sqlx.DB) repository.SequenceRepository {
	return &sequenceRepository{NewBaseRepository(db)}
}

// Next is a single upsert statement: the row lock taken by ON CONFLICT
// serialises concurrent callers of one scope, so every caller sees a
// distinct value.
func (r *sequenceRepository) Next(ctx context.Context, scopeKey string) (int64, error) {
	query := `
		INSERT INTO sequence_counters (scope_key, last_seq, updated_at)
		VALUES ($1, 1, NOW())
		ON CONFLICT (scope_key)
		DO UPDATE SET last_seq = sequence_counters.last_seq + 1, updated_at = NOW()
		RETURNING last_seq
	`
	var seq int64
	if err := r.db.GetContext(ctx, &seq, query, scopeKey); err != nil {
		return 0, apperrors.SequenceExhaustion(err)
	}
	if seq <= 0 {
		return 0, apperrors.SequenceExhaustion(nil)
	}
	return seq, nil
}

func (r *sequenceRepository) Get(ctx context.Context, scopeKey string) (*model.SequenceCounter, error) {
	var counter model.SequenceCounter
	err := r.db.GetContext(ctx, &counter,
		`SELECT scope_key, last_seq, updated_at FROM sequence_counters WHERE scope_key = $1`, scopeKey)
	if isNoRows(err) {
		return nil, apperrors.NotFound("sequence", nil)
	}
	if err != nil {
		return nil, storeError("get sequence", err)
	}
	return &counter, nil
}

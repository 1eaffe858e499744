package db

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/combatcore/internal/data"
	"github.com/udisondev/combatcore/internal/game/aura"
	"github.com/udisondev/combatcore/internal/model"
)

// AuraRepository saves the auras of a unit between runs. Units are keyed by
// a stable name since object ids are reissued on every spawn.
type AuraRepository struct {
	pool *pgxpool.Pool
}

// NewAuraRepository creates a new AuraRepository.
func NewAuraRepository(pool *pgxpool.Pool) *AuraRepository {
	return &AuraRepository{pool: pool}
}

// Save replaces the saved auras of unit in one transaction.
func (r *AuraRepository) Save(ctx context.Context, unit string, saved []aura.Saved) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction for %q: %w", unit, err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && err.Error() != "tx is closed" {
			slog.Error("rollback failed", "unit", unit, "error", err)
		}
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM unit_auras WHERE unit_key = $1`, unit); err != nil {
		return fmt.Errorf("deleting auras of %q: %w", unit, err)
	}
	for i, s := range saved {
		if _, err := tx.Exec(ctx, `
			INSERT INTO unit_auras
				(unit_key, slot, template_id, caster_id, stacks, remaining_ms, max_duration_ms, charges, amounts)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			unit, i, int32(s.Template), int64(s.Caster), s.Stacks, s.Remaining, s.MaxDuration, s.Charges, s.Amounts[:],
		); err != nil {
			return fmt.Errorf("inserting aura %d of %q: %w", s.Template, unit, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing auras of %q: %w", unit, err)
	}
	return nil
}

// Load returns the saved auras of unit in save order.
func (r *AuraRepository) Load(ctx context.Context, unit string) ([]aura.Saved, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT template_id, caster_id, stacks, remaining_ms, max_duration_ms, charges, amounts
		FROM unit_auras
		WHERE unit_key = $1
		ORDER BY slot
	`, unit)
	if err != nil {
		return nil, fmt.Errorf("querying auras of %q: %w", unit, err)
	}
	defer rows.Close()

	var out []aura.Saved
	for rows.Next() {
		var (
			s       aura.Saved
			tpl     int32
			caster  int64
			amounts []int32
		)
		if err := rows.Scan(&tpl, &caster, &s.Stacks, &s.Remaining, &s.MaxDuration, &s.Charges, &amounts); err != nil {
			return nil, fmt.Errorf("scanning aura row: %w", err)
		}
		s.Template = data.TemplateID(tpl)
		s.Caster = model.ObjectID(caster)
		copy(s.Amounts[:], amounts)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating aura rows: %w", err)
	}
	return out, nil
}

// Delete forgets the saved auras of unit.
func (r *AuraRepository) Delete(ctx context.Context, unit string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM unit_auras WHERE unit_key = $1`, unit); err != nil {
		return fmt.Errorf("deleting auras of %q: %w", unit, err)
	}
	return nil
}

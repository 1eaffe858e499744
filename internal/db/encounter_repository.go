package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/udisondev/combatcore/internal/model"
)

// ErrEncounterNotFound is returned for an unknown encounter id.
var ErrEncounterNotFound = errors.New("encounter not found")

// KillCredit is one kill recorded against an encounter.
type KillCredit struct {
	Encounter   uuid.UUID
	Killer      model.ObjectID
	Victim      model.ObjectID
	VictimName  string
	VictimLevel int32
	KilledAt    time.Time
}

// Encounter is one run of a shard.
type Encounter struct {
	ID        uuid.UUID
	Shard     int
	StartedAt time.Time
	EndedAt   *time.Time
}

// EncounterRepository stores encounters and their kill credit.
type EncounterRepository struct {
	pool *pgxpool.Pool
}

// NewEncounterRepository creates a new EncounterRepository.
func NewEncounterRepository(pool *pgxpool.Pool) *EncounterRepository {
	return &EncounterRepository{pool: pool}
}

// Begin opens a new encounter for shard.
func (r *EncounterRepository) Begin(ctx context.Context, shard int) (uuid.UUID, error) {
	id := uuid.New()
	if _, err := r.pool.Exec(ctx,
		`INSERT INTO encounters (id, shard) VALUES ($1, $2)`,
		id, shard,
	); err != nil {
		return uuid.Nil, fmt.Errorf("beginning encounter for shard %d: %w", shard, err)
	}
	return id, nil
}

// End closes the encounter.
func (r *EncounterRepository) End(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE encounters SET ended_at = now() WHERE id = $1 AND ended_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("ending encounter %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ending encounter %s: %w", id, ErrEncounterNotFound)
	}
	return nil
}

// Get returns the encounter with id.
func (r *EncounterRepository) Get(ctx context.Context, id uuid.UUID) (*Encounter, error) {
	var e Encounter
	err := r.pool.QueryRow(ctx,
		`SELECT id, shard, started_at, ended_at FROM encounters WHERE id = $1`, id,
	).Scan(&e.ID, &e.Shard, &e.StartedAt, &e.EndedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("querying encounter %s: %w", id, ErrEncounterNotFound)
		}
		return nil, fmt.Errorf("querying encounter %s: %w", id, err)
	}
	return &e, nil
}

// RecordKills inserts kill credits in one batch.
func (r *EncounterRepository) RecordKills(ctx context.Context, kills []KillCredit) error {
	if len(kills) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, k := range kills {
		batch.Queue(
			`INSERT INTO kill_credits (encounter_id, killer_id, victim_id, victim_name, victim_level, killed_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			k.Encounter, int64(k.Killer), int64(k.Victim), k.VictimName, k.VictimLevel, k.KilledAt,
		)
	}
	if err := r.pool.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("recording %d kills: %w", len(kills), err)
	}
	return nil
}

// Kills returns the kill credits of an encounter in insertion order.
func (r *EncounterRepository) Kills(ctx context.Context, id uuid.UUID) ([]KillCredit, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT killer_id, victim_id, victim_name, victim_level, killed_at
		FROM kill_credits
		WHERE encounter_id = $1
		ORDER BY id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("querying kills of encounter %s: %w", id, err)
	}
	defer rows.Close()

	var kills []KillCredit
	for rows.Next() {
		k := KillCredit{Encounter: id}
		var killer, victim int64
		if err := rows.Scan(&killer, &victim, &k.VictimName, &k.VictimLevel, &k.KilledAt); err != nil {
			return nil, fmt.Errorf("scanning kill row: %w", err)
		}
		k.Killer, k.Victim = model.ObjectID(killer), model.ObjectID(victim)
		kills = append(kills, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating kill rows: %w", err)
	}
	return kills, nil
}

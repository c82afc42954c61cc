package registry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/poolside/staking-engine/internal/model"
)

// PostgresRegistry implements Registry using PostgreSQL as the source of
// truth. All token amounts are stored as NUMERIC for exact decimal precision.
//
// Tables: participants(account, joined_at), positions(owner, position_id,
// amount, start_time, last_claimed_time, total_rewards, active),
// events(id, type, participant, position_id, amount, timestamp).
type PostgresRegistry struct {
	pool *pgxpool.Pool
}

// NewPostgresRegistry creates a new PostgreSQL-backed registry.
func NewPostgresRegistry(pool *pgxpool.Pool) *PostgresRegistry {
	return &PostgresRegistry{pool: pool}
}

// Allocate assigns the next sequential id inside a transaction so concurrent
// allocations for the same owner cannot collide.
func (r *PostgresRegistry) Allocate(ctx context.Context, participant string, amount decimal.Decimal, now time.Time) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO participants (account, joined_at)
		 VALUES ($1, $2)
		 ON CONFLICT (account) DO NOTHING`,
		participant, now,
	); err != nil {
		return 0, err
	}

	var id int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(position_id) + 1, 0)
		 FROM positions WHERE owner = $1`, participant).
		Scan(&id); err != nil {
		return 0, err
	}

	if _, err := tx.Exec(ctx,
		`INSERT INTO positions (owner, position_id, amount, start_time, last_claimed_time, total_rewards, active)
		 VALUES ($1, $2, $3::NUMERIC, $4, $4, 0, TRUE)`,
		participant, id, amount.String(), now,
	); err != nil {
		return 0, err
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PostgresRegistry) Get(ctx context.Context, participant string, id int) (*model.StakePosition, error) {
	var pos model.StakePosition
	var amount, totalRewards string

	err := r.pool.QueryRow(ctx,
		`SELECT owner, position_id, amount::TEXT, start_time, last_claimed_time, total_rewards::TEXT, active
		 FROM positions WHERE owner = $1 AND position_id = $2 AND amount > 0`,
		participant, id).
		Scan(&pos.Owner, &pos.ID, &amount,
			&pos.StartTime, &pos.LastClaimedTime,
			&totalRewards, &pos.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPositionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get position %s/%d: %w", participant, id, err)
	}

	pos.Amount, _ = decimal.NewFromString(amount)
	pos.TotalRewards, _ = decimal.NewFromString(totalRewards)

	return &pos, nil
}

func (r *PostgresRegistry) PositionsOf(ctx context.Context, participant string) ([]model.StakePosition, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT owner, position_id, amount::TEXT, start_time, last_claimed_time, total_rewards::TEXT, active
		 FROM positions WHERE owner = $1 ORDER BY position_id`, participant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanPositions(rows)
}

func (r *PostgresRegistry) PositionCount(ctx context.Context, participant string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM positions WHERE owner = $1`, participant).
		Scan(&count)
	return count, err
}

func (r *PostgresRegistry) MarkClosed(ctx context.Context, participant string, id int, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE positions
		 SET active = FALSE, last_claimed_time = $3
		 WHERE owner = $1 AND position_id = $2 AND amount > 0`,
		participant, id, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPositionNotFound
	}
	return nil
}

func (r *PostgresRegistry) CreditRewards(ctx context.Context, participant string, id int, amount decimal.Decimal, now time.Time) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE positions
		 SET total_rewards = total_rewards + $3::NUMERIC, last_claimed_time = $4
		 WHERE owner = $1 AND position_id = $2 AND amount > 0`,
		participant, id, amount.String(), now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPositionNotFound
	}
	return nil
}

func (r *PostgresRegistry) Participants(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT account FROM participants ORDER BY joined_at, account`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var accounts []string
	for rows.Next() {
		var account string
		if err := rows.Scan(&account); err != nil {
			return nil, err
		}
		accounts = append(accounts, account)
	}
	return accounts, rows.Err()
}

func (r *PostgresRegistry) InsertEvent(ctx context.Context, e *model.Event) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO events (id, type, participant, position_id, amount, timestamp)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6)`,
		e.ID, e.Type, e.Participant, e.PositionID, e.Amount.String(), e.Timestamp,
	)
	return err
}

func (r *PostgresRegistry) EventsByParticipant(ctx context.Context, participant string) ([]model.Event, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, type, participant, position_id, amount::TEXT, timestamp
		 FROM events WHERE participant = $1 ORDER BY timestamp`, participant)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []model.Event
	for rows.Next() {
		var e model.Event
		var amount string
		if err := rows.Scan(&e.ID, &e.Type, &e.Participant, &e.PositionID,
			&amount, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Amount, _ = decimal.NewFromString(amount)
		events = append(events, e)
	}
	return events, rows.Err()
}

// scanPositions reads pgx rows into StakePosition slices.
type pgxRows interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanPositions(rows pgxRows) ([]model.StakePosition, error) {
	var positions []model.StakePosition
	for rows.Next() {
		var pos model.StakePosition
		var amount, totalRewards string

		if err := rows.Scan(&pos.Owner, &pos.ID, &amount,
			&pos.StartTime, &pos.LastClaimedTime,
			&totalRewards, &pos.Active); err != nil {
			return nil, err
		}

		pos.Amount, _ = decimal.NewFromString(amount)
		pos.TotalRewards, _ = decimal.NewFromString(totalRewards)

		positions = append(positions, pos)
	}
	return positions, rows.Err()
}

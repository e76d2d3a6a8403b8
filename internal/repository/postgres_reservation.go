package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
)

type PostgresReservationRepository struct {
	db *pgxpool.Pool
}

func NewPostgresReservationRepository(db *pgxpool.Pool) *PostgresReservationRepository {
	return &PostgresReservationRepository{
		db: db,
	}
}

// CreatePending writes the PENDING reservation and its ACCEPTED ledger entry
// in one transaction. The partial unique index on live reservations turns a
// lost race into ErrSeatAlreadyReserved instead of a double booking.
func (p *PostgresReservationRepository) CreatePending(ctx context.Context, reservation *domain.Reservation) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO reservations (id, performance_id, seat_id, holder_id, state, created_at, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`

		_, err := tx.Exec(
			ctx,
			query,
			reservation.ID,
			reservation.PerformanceID,
			reservation.SeatID,
			reservation.HolderID,
			reservation.State,
			reservation.CreatedAt,
			reservation.ExpiresAt,
		)

		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
				return domain.ErrSeatAlreadyReserved
			}

			return wrapStoreErr(err)
		}

		return p.appendLedgerTx(ctx, tx, &domain.LedgerEntry{
			PerformanceID: reservation.PerformanceID,
			SeatID:        reservation.SeatID,
			HolderID:      reservation.HolderID,
			ReservationID: &reservation.ID,
			Action:        domain.LedgerClaim,
			Outcome:       domain.OutcomeAccepted,
			CreatedAt:     reservation.CreatedAt,
		})
	})
}

func (p *PostgresReservationRepository) GetByReservationID(ctx context.Context, id uuid.UUID) (*domain.Reservation, error) {
	query := `
		SELECT id, performance_id, seat_id, holder_id, state, created_at, confirmed_at, expires_at
		FROM reservations
		WHERE id = $1
	`

	var reservation domain.Reservation

	err := p.db.QueryRow(ctx, query, id).Scan(
		&reservation.ID,
		&reservation.PerformanceID,
		&reservation.SeatID,
		&reservation.HolderID,
		&reservation.State,
		&reservation.CreatedAt,
		&reservation.ConfirmedAt,
		&reservation.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, wrapStoreErr(err)
	}

	return &reservation, nil
}

func (p *PostgresReservationRepository) ActiveBySeat(
	ctx context.Context,
	performanceID, seatID int,
	now time.Time) (*domain.Reservation, error) {

	query := `
		SELECT id, performance_id, seat_id, holder_id, state, created_at, confirmed_at, expires_at
		FROM reservations
		WHERE performance_id = $1 AND seat_id = $2
		  AND (state = 'CONFIRMED' OR (state = 'PENDING' AND expires_at > $3))
	`

	var reservation domain.Reservation

	err := p.db.QueryRow(ctx, query, performanceID, seatID, now).Scan(
		&reservation.ID,
		&reservation.PerformanceID,
		&reservation.SeatID,
		&reservation.HolderID,
		&reservation.State,
		&reservation.CreatedAt,
		&reservation.ConfirmedAt,
		&reservation.ExpiresAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}

		return nil, wrapStoreErr(err)
	}

	return &reservation, nil
}

func (p *PostgresReservationRepository) ActiveByPerformance(
	ctx context.Context,
	performanceID int,
	now time.Time) ([]domain.Reservation, error) {

	query := `
		SELECT id, performance_id, seat_id, holder_id, state, created_at, confirmed_at, expires_at
		FROM reservations
		WHERE performance_id = $1
		  AND (state = 'CONFIRMED' OR (state = 'PENDING' AND expires_at > $2))
		ORDER BY seat_id
	`

	rows, err := p.db.Query(ctx, query, performanceID, now)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()

	reservations := make([]domain.Reservation, 0)

	for rows.Next() {
		var reservation domain.Reservation

		err = rows.Scan(
			&reservation.ID,
			&reservation.PerformanceID,
			&reservation.SeatID,
			&reservation.HolderID,
			&reservation.State,
			&reservation.CreatedAt,
			&reservation.ConfirmedAt,
			&reservation.ExpiresAt,
		)
		if err != nil {
			return nil, wrapStoreErr(err)
		}

		reservations = append(reservations, reservation)
	}

	if err = rows.Err(); err != nil {
		return nil, wrapStoreErr(err)
	}

	return reservations, nil
}

// UpdateState persists an already validated transition. The state column is
// part of the WHERE clause so a concurrent transition surfaces as
// ErrEditConflict rather than silently overwriting.
func (p *PostgresReservationRepository) UpdateState(
	ctx context.Context,
	reservation *domain.Reservation,
	from domain.ReservationState,
	action domain.LedgerAction) error {

	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			UPDATE reservations
			SET state = $1, confirmed_at = $2
			WHERE id = $3 AND state = $4
		`

		tag, err := tx.Exec(ctx, query, reservation.State, reservation.ConfirmedAt, reservation.ID, from)
		if err != nil {
			return wrapStoreErr(err)
		}

		if tag.RowsAffected() == 0 {
			return domain.ErrEditConflict
		}

		return p.appendLedgerTx(ctx, tx, &domain.LedgerEntry{
			PerformanceID: reservation.PerformanceID,
			SeatID:        reservation.SeatID,
			HolderID:      reservation.HolderID,
			ReservationID: &reservation.ID,
			Action:        action,
			Outcome:       domain.OutcomeAccepted,
			CreatedAt:     time.Now(),
		})
	})
}

func (p *PostgresReservationRepository) ReapExpired(
	ctx context.Context,
	performanceID, seatID int,
	now time.Time) (int, error) {

	return p.reap(ctx, now, `
		UPDATE reservations
		SET state = 'EXPIRED'
		WHERE performance_id = $1 AND seat_id = $2 AND state = 'PENDING' AND expires_at <= $3
		RETURNING id, performance_id, seat_id, holder_id
	`, performanceID, seatID, now)
}

func (p *PostgresReservationRepository) ReapAllExpired(ctx context.Context, now time.Time) (int, error) {
	return p.reap(ctx, now, `
		UPDATE reservations
		SET state = 'EXPIRED'
		WHERE state = 'PENDING' AND expires_at <= $1
		RETURNING id, performance_id, seat_id, holder_id
	`, now)
}

func (p *PostgresReservationRepository) reap(ctx context.Context, now time.Time, query string, args ...any) (int, error) {
	reaped := 0

	err := runInTx(ctx, p.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, query, args...)
		if err != nil {
			return wrapStoreErr(err)
		}

		type reapedRow struct {
			id            uuid.UUID
			performanceID int
			seatID        int
			holderID      string
		}

		expired := make([]reapedRow, 0)

		for rows.Next() {
			var row reapedRow

			if err := rows.Scan(&row.id, &row.performanceID, &row.seatID, &row.holderID); err != nil {
				rows.Close()
				return wrapStoreErr(err)
			}

			expired = append(expired, row)
		}
		rows.Close()

		if err := rows.Err(); err != nil {
			return wrapStoreErr(err)
		}

		ledgerRows := make([][]any, 0, len(expired))
		for _, row := range expired {
			ledgerRows = append(ledgerRows, []any{
				row.performanceID,
				row.seatID,
				row.holderID,
				row.id,
				domain.LedgerExpire,
				domain.OutcomeAccepted,
				now,
			})
		}

		if len(ledgerRows) > 0 {
			_, err = tx.CopyFrom(
				ctx,
				pgx.Identifier{"reservation_ledger"},
				[]string{"performance_id", "seat_id", "holder_id", "reservation_id", "action", "outcome", "created_at"},
				pgx.CopyFromRows(ledgerRows),
			)
			if err != nil {
				return wrapStoreErr(err)
			}
		}

		reaped = len(expired)

		return nil
	})

	return reaped, err
}

func (p *PostgresReservationRepository) HasConfirmed(ctx context.Context, performanceID int) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE performance_id = $1 AND state = 'CONFIRMED'
		)
	`

	var exists bool

	err := p.db.QueryRow(ctx, query, performanceID).Scan(&exists)
	if err != nil {
		return false, wrapStoreErr(err)
	}

	return exists, nil
}

func (p *PostgresReservationRepository) AppendLedger(ctx context.Context, entry *domain.LedgerEntry) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		return p.appendLedgerTx(ctx, tx, entry)
	})
}

func (p *PostgresReservationRepository) appendLedgerTx(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO reservation_ledger (performance_id, seat_id, holder_id, reservation_id, action, outcome, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := tx.QueryRow(
		ctx,
		query,
		entry.PerformanceID,
		entry.SeatID,
		entry.HolderID,
		entry.ReservationID,
		entry.Action,
		entry.Outcome,
		entry.CreatedAt).Scan(&entry.ID)

	return wrapStoreErr(err)
}

func (p *PostgresReservationRepository) LedgerBySeat(
	ctx context.Context,
	performanceID, seatID int) ([]domain.LedgerEntry, error) {

	query := `
		SELECT id, performance_id, seat_id, holder_id, reservation_id, action, outcome, created_at
		FROM reservation_ledger
		WHERE performance_id = $1 AND seat_id = $2
		ORDER BY id
	`

	rows, err := p.db.Query(ctx, query, performanceID, seatID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()

	entries := make([]domain.LedgerEntry, 0)

	for rows.Next() {
		var entry domain.LedgerEntry

		err = rows.Scan(
			&entry.ID,
			&entry.PerformanceID,
			&entry.SeatID,
			&entry.HolderID,
			&entry.ReservationID,
			&entry.Action,
			&entry.Outcome,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, wrapStoreErr(err)
		}

		entries = append(entries, entry)
	}

	if err = rows.Err(); err != nil {
		return nil, wrapStoreErr(err)
	}

	return entries, nil
}

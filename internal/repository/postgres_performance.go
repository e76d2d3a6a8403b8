package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stagehold/theatre-reservation-system/internal/domain"
)

type PostgresPerformanceRepository struct {
	db *pgxpool.Pool
}

func NewPostgresPerformanceRepository(db *pgxpool.Pool) *PostgresPerformanceRepository {
	return &PostgresPerformanceRepository{
		db: db,
	}
}

// Create inserts the performance and its full seat grid in one transaction.
// The grid is immutable afterwards, so this is the only place seats are ever
// written.
func (p *PostgresPerformanceRepository) Create(ctx context.Context, performance *domain.Performance) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO performances (title, venue_id, showtime, seat_rows, seats_per_row, base_price, status)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, created_at
		`

		err := tx.QueryRow(
			ctx,
			query,
			performance.Title,
			performance.VenueID,
			performance.Showtime,
			performance.Rows,
			performance.SeatsPerRow,
			performance.BasePrice,
			performance.Status).Scan(&performance.ID, &performance.CreatedAt)

		if err != nil {
			return wrapStoreErr(err)
		}

		seats := domain.SeatGrid(performance.ID, performance.Rows, performance.SeatsPerRow)

		rows := make([][]any, 0, len(seats))
		for _, seat := range seats {
			rows = append(rows, []any{
				seat.PerformanceID,
				seat.ID,
				seat.Row,
				seat.Number,
				seat.Label,
			})
		}

		_, err = tx.CopyFrom(
			ctx,
			pgx.Identifier{"seats"},
			[]string{"performance_id", "seat_id", "seat_row", "seat_number", "label"},
			pgx.CopyFromRows(rows),
		)

		return wrapStoreErr(err)
	})
}

func (p *PostgresPerformanceRepository) GetByID(ctx context.Context, id int) (*domain.Performance, error) {
	query := `
		SELECT id, title, venue_id, showtime, seat_rows, seats_per_row, base_price, status, created_at
		FROM performances
		WHERE id = $1
	`

	var performance domain.Performance

	err := p.db.QueryRow(ctx, query, id).Scan(
		&performance.ID,
		&performance.Title,
		&performance.VenueID,
		&performance.Showtime,
		&performance.Rows,
		&performance.SeatsPerRow,
		&performance.BasePrice,
		&performance.Status,
		&performance.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, wrapStoreErr(err)
	}

	return &performance, nil
}

func (p *PostgresPerformanceRepository) List(
	ctx context.Context,
	pagination domain.Pagination) ([]domain.Performance, *domain.Metadata, error) {

	query := `
		SELECT COUNT(*) OVER(), id, title, venue_id, showtime, seat_rows, seats_per_row, base_price, status, created_at
		FROM performances
		ORDER BY showtime, id
		LIMIT $1 OFFSET $2
	`

	rows, err := p.db.Query(ctx, query, pagination.Limit(), pagination.Offset())
	if err != nil {
		return nil, nil, wrapStoreErr(err)
	}
	defer rows.Close()

	performances := make([]domain.Performance, 0)
	totalRecords := 0

	for rows.Next() {
		var performance domain.Performance

		err := rows.Scan(
			&totalRecords,
			&performance.ID,
			&performance.Title,
			&performance.VenueID,
			&performance.Showtime,
			&performance.Rows,
			&performance.SeatsPerRow,
			&performance.BasePrice,
			&performance.Status,
			&performance.CreatedAt,
		)
		if err != nil {
			return nil, nil, wrapStoreErr(err)
		}

		performances = append(performances, performance)
	}

	if err = rows.Err(); err != nil {
		return nil, nil, wrapStoreErr(err)
	}

	metadata := domain.NewMetadata(totalRecords, pagination.Page, pagination.PageSize)

	return performances, metadata, nil
}

func (p *PostgresPerformanceRepository) GetSeatMap(ctx context.Context, performanceID int) ([]domain.Seat, error) {
	query := `
		SELECT performance_id, seat_id, seat_row, seat_number, label
		FROM seats
		WHERE performance_id = $1
		ORDER BY seat_id
	`

	rows, err := p.db.Query(ctx, query, performanceID)
	if err != nil {
		return nil, wrapStoreErr(err)
	}
	defer rows.Close()

	seats := make([]domain.Seat, 0)

	for rows.Next() {
		var seat domain.Seat

		err = rows.Scan(
			&seat.PerformanceID,
			&seat.ID,
			&seat.Row,
			&seat.Number,
			&seat.Label,
		)
		if err != nil {
			return nil, wrapStoreErr(err)
		}

		seats = append(seats, seat)
	}

	if err = rows.Err(); err != nil {
		return nil, wrapStoreErr(err)
	}

	if len(seats) == 0 {
		return nil, domain.ErrRecordNotFound
	}

	return seats, nil
}

func (p *PostgresPerformanceRepository) GetSeat(ctx context.Context, performanceID, seatID int) (*domain.Seat, error) {
	query := `
		SELECT performance_id, seat_id, seat_row, seat_number, label
		FROM seats
		WHERE performance_id = $1 AND seat_id = $2
	`

	var seat domain.Seat

	err := p.db.QueryRow(ctx, query, performanceID, seatID).Scan(
		&seat.PerformanceID,
		&seat.ID,
		&seat.Row,
		&seat.Number,
		&seat.Label,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRecordNotFound
		}

		return nil, wrapStoreErr(err)
	}

	return &seat, nil
}

// Cancel marks a performance CANCELLED. Refused while any confirmed booking
// exists; confirmed holders must be released through the explicit refund path
// first.
func (p *PostgresPerformanceRepository) Cancel(ctx context.Context, id int) error {
	return runInTx(ctx, p.db, func(tx pgx.Tx) error {
		var hasConfirmed bool

		query := `
			SELECT EXISTS (
				SELECT 1 FROM reservations
				WHERE performance_id = $1 AND state = 'CONFIRMED'
			)
		`

		if err := tx.QueryRow(ctx, query, id).Scan(&hasConfirmed); err != nil {
			return wrapStoreErr(err)
		}

		if hasConfirmed {
			return domain.ErrPerformanceHasBookings
		}

		tag, err := tx.Exec(ctx, `UPDATE performances SET status = 'CANCELLED' WHERE id = $1`, id)
		if err != nil {
			return wrapStoreErr(err)
		}

		if tag.RowsAffected() == 0 {
			return domain.ErrRecordNotFound
		}

		return nil
	})
}

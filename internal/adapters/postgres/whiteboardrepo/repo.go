package whiteboardrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/tripboard/tripboard-api/internal/adapters/postgres"
	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/whiteboardrepo"
)

// Repo is a Postgres implementation of whiteboardrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, w whiteboardrepo.Whiteboard) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(w.ID))
	if err != nil {
		return fmt.Errorf("invalid whiteboard id: %w", err)
	}
	tid, err := uuid.Parse(string(w.TripID))
	if err != nil {
		return fmt.Errorf("invalid trip id: %w", err)
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO whiteboards (external_id, trip_id, day, created_at)
		VALUES ($1, (SELECT id FROM trips WHERE external_id = $2), $3, $4)
	`, id, tid, w.Day, w.CreatedAt.UTC())
	if err != nil {
		if postgres.IsUniqueViolation(err, "whiteboards_trip_day_unique") {
			return whiteboardrepo.ErrDayTaken
		}
		return err
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.WhiteboardID) (whiteboardrepo.Whiteboard, error) {
	if r.pool == nil {
		return whiteboardrepo.Whiteboard{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return whiteboardrepo.Whiteboard{}, whiteboardrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT w.external_id, t.external_id, w.day, w.created_at
		FROM whiteboards w
		JOIN trips t ON t.id = w.trip_id
		WHERE w.external_id = $1
	`, uid)
	w, err := scanWhiteboard(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return whiteboardrepo.Whiteboard{}, whiteboardrepo.ErrNotFound
	}
	return w, err
}

func (r *Repo) ListByTrip(ctx context.Context, tripID domain.TripID) ([]whiteboardrepo.Whiteboard, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	tid, err := uuid.Parse(string(tripID))
	if err != nil {
		return []whiteboardrepo.Whiteboard{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT w.external_id, t.external_id, w.day, w.created_at
		FROM whiteboards w
		JOIN trips t ON t.id = w.trip_id
		WHERE t.external_id = $1
		ORDER BY w.day ASC, w.created_at ASC, w.external_id ASC
	`, tid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]whiteboardrepo.Whiteboard, 0)
	for rows.Next() {
		w, err := scanWhiteboard(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id domain.WhiteboardID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return whiteboardrepo.ErrNotFound
	}
	// Pins on the whiteboard go with it via ON DELETE CASCADE.
	ct, err := r.pool.Exec(ctx, `DELETE FROM whiteboards WHERE external_id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return whiteboardrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) DeleteByTrip(ctx context.Context, tripID domain.TripID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tid, err := uuid.Parse(string(tripID))
	if err != nil {
		return nil
	}
	_, err = r.pool.Exec(ctx, `
		DELETE FROM whiteboards
		WHERE trip_id = (SELECT id FROM trips WHERE external_id = $1)
	`, tid)
	return err
}

func scanWhiteboard(row pgx.Row) (whiteboardrepo.Whiteboard, error) {
	var (
		id        uuid.UUID
		tripID    uuid.UUID
		day       int
		createdAt time.Time
	)
	if err := row.Scan(&id, &tripID, &day, &createdAt); err != nil {
		return whiteboardrepo.Whiteboard{}, err
	}
	return whiteboardrepo.Whiteboard{
		ID:        domain.WhiteboardID(id.String()),
		TripID:    domain.TripID(tripID.String()),
		Day:       day,
		CreatedAt: createdAt.UTC(),
	}, nil
}

package triprepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/tripboard/tripboard-api/internal/adapters/postgres"
	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/triprepo"
)

// Repo is a Postgres implementation of triprepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, t triprepo.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(t.ID))
	if err != nil {
		return fmt.Errorf("invalid trip id: %w", err)
	}
	creator, err := uuid.Parse(string(t.CreatorMemberID))
	if err != nil {
		return fmt.Errorf("invalid creator member id: %w", err)
	}
	imageType, imageData := imageColumns(t.Image)

	_, err = r.pool.Exec(ctx, `
		INSERT INTO trips (
			external_id,
			name,
			description,
			image_type,
			image_data,
			creator_member_id,
			start_date,
			end_date,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			(SELECT id FROM members WHERE external_id = $6),
			$7, $8, $9, $10
		)
	`,
		id,
		t.Name,
		t.Description,
		imageType,
		imageData,
		creator,
		datePtr(t.StartDate),
		datePtr(t.EndDate),
		t.CreatedAt.UTC(),
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		if postgres.IsUniqueViolation(err, "trips_external_id_unique") {
			return triprepo.ErrAlreadyExists
		}
		return err
	}
	return nil
}

func (r *Repo) Save(ctx context.Context, t triprepo.Trip) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(t.ID))
	if err != nil {
		return triprepo.ErrNotFound
	}
	imageType, imageData := imageColumns(t.Image)

	ct, err := r.pool.Exec(ctx, `
		UPDATE trips
		SET name = $2,
		    description = $3,
		    image_type = $4,
		    image_data = $5,
		    start_date = $6,
		    end_date = $7,
		    updated_at = $8
		WHERE external_id = $1
	`,
		id,
		t.Name,
		t.Description,
		imageType,
		imageData,
		datePtr(t.StartDate),
		datePtr(t.EndDate),
		t.UpdatedAt.UTC(),
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.TripID) (triprepo.Trip, error) {
	if r.pool == nil {
		return triprepo.Trip{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT
			tr.external_id,
			tr.name,
			tr.description,
			tr.image_type,
			tr.image_data,
			creator.external_id,
			tr.start_date,
			tr.end_date,
			tr.created_at,
			tr.updated_at
		FROM trips tr
		JOIN members creator ON creator.id = tr.creator_member_id
		WHERE tr.external_id = $1
	`, uid)

	t, err := scanTrip(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return triprepo.Trip{}, triprepo.ErrNotFound
	}
	return t, err
}

func (r *Repo) ListByIDs(ctx context.Context, ids []domain.TripID) ([]triprepo.Trip, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(string(id)); err == nil {
			keys = append(keys, string(id))
		}
	}
	if len(keys) == 0 {
		return []triprepo.Trip{}, nil
	}

	// image_data is replaced by NULL so list views never pull image bytes.
	rows, err := r.pool.Query(ctx, `
		SELECT
			tr.external_id,
			tr.name,
			tr.description,
			tr.image_type,
			NULL::bytea,
			creator.external_id,
			tr.start_date,
			tr.end_date,
			tr.created_at,
			tr.updated_at
		FROM trips tr
		JOIN members creator ON creator.id = tr.creator_member_id
		WHERE tr.external_id = ANY($1::uuid[])
		ORDER BY tr.start_date ASC NULLS LAST, tr.created_at ASC, tr.external_id ASC
	`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]triprepo.Trip, 0, len(keys))
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repo) Delete(ctx context.Context, id domain.TripID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return triprepo.ErrNotFound
	}
	// Participants, whiteboards and pins go with the trip via ON DELETE CASCADE.
	ct, err := r.pool.Exec(ctx, `DELETE FROM trips WHERE external_id = $1`, uid)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return triprepo.ErrNotFound
	}
	return nil
}

// --- helpers ---

func scanTrip(row pgx.Row) (triprepo.Trip, error) {
	var (
		externalID uuid.UUID
		name       string
		desc       *string
		imageType  *string
		imageData  []byte
		creatorID  uuid.UUID
		startDate  pgtype.Date
		endDate    pgtype.Date
		createdAt  time.Time
		updatedAt  time.Time
	)
	if err := row.Scan(
		&externalID,
		&name,
		&desc,
		&imageType,
		&imageData,
		&creatorID,
		&startDate,
		&endDate,
		&createdAt,
		&updatedAt,
	); err != nil {
		return triprepo.Trip{}, err
	}
	t := triprepo.Trip{
		ID:              domain.TripID(externalID.String()),
		Name:            name,
		Description:     desc,
		CreatorMemberID: domain.MemberID(creatorID.String()),
		StartDate:       dateToTimePtr(startDate),
		EndDate:         dateToTimePtr(endDate),
		CreatedAt:       createdAt.UTC(),
		UpdatedAt:       updatedAt.UTC(),
	}
	if imageType != nil {
		t.Image = &domain.Image{ContentType: *imageType, Data: imageData}
	}
	return t, nil
}

func imageColumns(img *domain.Image) (*string, []byte) {
	if img == nil {
		return nil, nil
	}
	ct := img.ContentType
	return &ct, img.Data
}

func datePtr(t *time.Time) pgtype.Date {
	var d pgtype.Date
	if t == nil {
		return d
	}
	tt := t.UTC()
	d.Time = time.Date(tt.Year(), tt.Month(), tt.Day(), 0, 0, 0, 0, time.UTC)
	d.Valid = true
	return d
}

func dateToTimePtr(d pgtype.Date) *time.Time {
	if !d.Valid {
		return nil
	}
	t := time.Date(d.Time.Year(), d.Time.Month(), d.Time.Day(), 0, 0, 0, 0, time.UTC)
	return &t
}

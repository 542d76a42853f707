package participantrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/participantrepo"
)

// Repo is a Postgres implementation of participantrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Add(ctx context.Context, p participantrepo.Participant) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tid, mid, err := parseIDs(p.TripID, p.MemberID)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		INSERT INTO trip_participants (trip_id, member_id, nickname, joined_at)
		VALUES (
			(SELECT id FROM trips WHERE external_id = $1),
			(SELECT id FROM members WHERE external_id = $2),
			$3,
			$4
		)
		ON CONFLICT (trip_id, member_id) DO NOTHING
	`, tid, mid, p.Nickname, p.JoinedAt.UTC())
	return err
}

func (r *Repo) Get(ctx context.Context, tripID domain.TripID, memberID domain.MemberID) (participantrepo.Participant, error) {
	if r.pool == nil {
		return participantrepo.Participant{}, errors.New("nil postgres pool")
	}
	tid, mid, err := parseIDs(tripID, memberID)
	if err != nil {
		return participantrepo.Participant{}, participantrepo.ErrNotFound
	}
	row := r.pool.QueryRow(ctx, `
		SELECT p.nickname, p.joined_at
		FROM trip_participants p
		JOIN trips t ON t.id = p.trip_id
		JOIN members m ON m.id = p.member_id
		WHERE t.external_id = $1 AND m.external_id = $2
	`, tid, mid)
	var (
		nickname string
		joinedAt time.Time
	)
	if err := row.Scan(&nickname, &joinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return participantrepo.Participant{}, participantrepo.ErrNotFound
		}
		return participantrepo.Participant{}, err
	}
	return participantrepo.Participant{
		TripID:   tripID,
		MemberID: memberID,
		Nickname: nickname,
		JoinedAt: joinedAt.UTC(),
	}, nil
}

func (r *Repo) Remove(ctx context.Context, tripID domain.TripID, memberID domain.MemberID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tid, mid, err := parseIDs(tripID, memberID)
	if err != nil {
		return nil
	}
	_, err = r.pool.Exec(ctx, `
		DELETE FROM trip_participants
		WHERE trip_id = (SELECT id FROM trips WHERE external_id = $1)
		  AND member_id = (SELECT id FROM members WHERE external_id = $2)
	`, tid, mid)
	return err
}

func (r *Repo) SetNickname(ctx context.Context, tripID domain.TripID, memberID domain.MemberID, nickname string) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tid, mid, err := parseIDs(tripID, memberID)
	if err != nil {
		return participantrepo.ErrNotFound
	}
	ct, err := r.pool.Exec(ctx, `
		UPDATE trip_participants
		SET nickname = $3
		WHERE trip_id = (SELECT id FROM trips WHERE external_id = $1)
		  AND member_id = (SELECT id FROM members WHERE external_id = $2)
	`, tid, mid, nickname)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return participantrepo.ErrNotFound
	}
	return nil
}

func (r *Repo) ListByTrip(ctx context.Context, tripID domain.TripID) ([]participantrepo.Participant, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	tid, err := uuid.Parse(string(tripID))
	if err != nil {
		return []participantrepo.Participant{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT m.external_id, p.nickname, p.joined_at
		FROM trip_participants p
		JOIN trips t ON t.id = p.trip_id
		JOIN members m ON m.id = p.member_id
		WHERE t.external_id = $1
		ORDER BY p.joined_at ASC, m.external_id ASC
	`, tid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]participantrepo.Participant, 0)
	for rows.Next() {
		var (
			memberID uuid.UUID
			nickname string
			joinedAt time.Time
		)
		if err := rows.Scan(&memberID, &nickname, &joinedAt); err != nil {
			return nil, err
		}
		out = append(out, participantrepo.Participant{
			TripID:   tripID,
			MemberID: domain.MemberID(memberID.String()),
			Nickname: nickname,
			JoinedAt: joinedAt.UTC(),
		})
	}
	return out, rows.Err()
}

func (r *Repo) ListTripIDsByMember(ctx context.Context, memberID domain.MemberID) ([]domain.TripID, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return []domain.TripID{}, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT t.external_id
		FROM trip_participants p
		JOIN trips t ON t.id = p.trip_id
		JOIN members m ON m.id = p.member_id
		WHERE m.external_id = $1
		ORDER BY t.external_id::text ASC
	`, mid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.TripID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, domain.TripID(id.String()))
	}
	return out, rows.Err()
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
		DELETE FROM trip_participants
		WHERE trip_id = (SELECT id FROM trips WHERE external_id = $1)
	`, tid)
	return err
}

func parseIDs(tripID domain.TripID, memberID domain.MemberID) (uuid.UUID, uuid.UUID, error) {
	tid, err := uuid.Parse(string(tripID))
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid trip id: %w", err)
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return uuid.Nil, uuid.Nil, fmt.Errorf("invalid member id: %w", err)
	}
	return tid, mid, nil
}

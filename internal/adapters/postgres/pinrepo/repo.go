package pinrepo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/tripboard/tripboard-api/internal/adapters/postgres"
	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/pinrepo"
)

// selectPin takes the image column expression so list queries can skip the bytes.
const selectPin = `
	SELECT
		p.external_id,
		t.external_id,
		w.external_id,
		p.parent_external_id::text,
		p.name,
		p.description,
		p.location_label,
		p.location_address,
		p.location_latitude,
		p.location_longitude,
		p.image_type,
		%s,
		p.expenses,
		COALESCE((
			SELECT array_agg(m.external_id::text ORDER BY pp.position)
			FROM pin_participants pp
			JOIN members m ON m.id = pp.member_id
			WHERE pp.pin_id = p.id
		), '{}'::text[]),
		p.created_at,
		p.updated_at
	FROM pins p
	JOIN trips t ON t.id = p.trip_id
	JOIN whiteboards w ON w.id = p.whiteboard_id
`

// expenseRow is the jsonb element shape of pins.expenses.
type expenseRow struct {
	MemberID string  `json:"memberId"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
}

// Repo is a Postgres implementation of pinrepo.Repository.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) Create(ctx context.Context, p pinrepo.Pin, relink []domain.ParentChange) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	ids, err := parsePinIDs(p)
	if err != nil {
		return err
	}
	expenses, err := encodeExpenses(p.Expenses)
	if err != nil {
		return err
	}
	imageType, imageData := imageColumns(p.Image)
	label, addr, lat, lng := locationColumns(p.Location)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		// Holding the row blocks a concurrent whiteboard delete until this pin is written.
		var boardID int64
		err := tx.QueryRow(ctx, `
			SELECT id FROM whiteboards WHERE external_id = $1 FOR SHARE
		`, ids.whiteboard).Scan(&boardID)
		if errors.Is(err, pgx.ErrNoRows) {
			return pinrepo.ErrWhiteboardNotFound
		}
		if err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			INSERT INTO pins (
				external_id,
				trip_id,
				whiteboard_id,
				parent_external_id,
				name,
				description,
				location_label,
				location_address,
				location_latitude,
				location_longitude,
				image_type,
				image_data,
				expenses,
				created_at,
				updated_at
			) VALUES (
				$1,
				(SELECT id FROM trips WHERE external_id = $2),
				$3,
				$4::uuid,
				$5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
			)
		`,
			ids.pin,
			ids.trip,
			boardID,
			parentColumn(p.ParentID),
			p.Name,
			p.Description,
			label,
			addr,
			lat,
			lng,
			imageType,
			imageData,
			expenses,
			p.CreatedAt.UTC(),
			p.UpdatedAt.UTC(),
		)
		if err != nil {
			if postgres.IsUniqueViolation(err, "pins_external_id_unique") {
				return pinrepo.ErrAlreadyExists
			}
			return err
		}
		if err := replaceParticipants(ctx, tx, ids.pin, p.ParticipantIDs); err != nil {
			return err
		}
		return applyChanges(ctx, tx, ids.whiteboard, relink, p.UpdatedAt, true)
	})
}

func (r *Repo) Save(ctx context.Context, p pinrepo.Pin) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	ids, err := parsePinIDs(p)
	if err != nil {
		return pinrepo.ErrNotFound
	}
	expenses, err := encodeExpenses(p.Expenses)
	if err != nil {
		return err
	}
	imageType, imageData := imageColumns(p.Image)
	label, addr, lat, lng := locationColumns(p.Location)

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			UPDATE pins
			SET whiteboard_id = (SELECT id FROM whiteboards WHERE external_id = $2),
			    parent_external_id = $3::uuid,
			    name = $4,
			    description = $5,
			    location_label = $6,
			    location_address = $7,
			    location_latitude = $8,
			    location_longitude = $9,
			    image_type = $10,
			    image_data = $11,
			    expenses = $12,
			    updated_at = $13
			WHERE external_id = $1
		`,
			ids.pin,
			ids.whiteboard,
			parentColumn(p.ParentID),
			p.Name,
			p.Description,
			label,
			addr,
			lat,
			lng,
			imageType,
			imageData,
			expenses,
			p.UpdatedAt.UTC(),
		)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return pinrepo.ErrNotFound
		}
		return replaceParticipants(ctx, tx, ids.pin, p.ParticipantIDs)
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.PinID) (pinrepo.Pin, error) {
	if r.pool == nil {
		return pinrepo.Pin{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return pinrepo.Pin{}, pinrepo.ErrNotFound
	}
	p, err := scanPin(r.pool.QueryRow(ctx, fmt.Sprintf(selectPin, "p.image_data")+` WHERE p.external_id = $1`, uid))
	if errors.Is(err, pgx.ErrNoRows) {
		return pinrepo.Pin{}, pinrepo.ErrNotFound
	}
	return p, err
}

func (r *Repo) ListByWhiteboard(ctx context.Context, whiteboardID domain.WhiteboardID) ([]pinrepo.Pin, error) {
	uid, err := uuid.Parse(string(whiteboardID))
	if err != nil {
		return []pinrepo.Pin{}, nil
	}
	return r.list(ctx, `WHERE w.external_id = $1`, uid)
}

func (r *Repo) ListByTrip(ctx context.Context, tripID domain.TripID) ([]pinrepo.Pin, error) {
	uid, err := uuid.Parse(string(tripID))
	if err != nil {
		return []pinrepo.Pin{}, nil
	}
	return r.list(ctx, `WHERE t.external_id = $1`, uid)
}

func (r *Repo) ListByParticipant(ctx context.Context, memberID domain.MemberID) ([]pinrepo.Pin, error) {
	uid, err := uuid.Parse(string(memberID))
	if err != nil {
		return []pinrepo.Pin{}, nil
	}
	return r.list(ctx, `
		WHERE EXISTS (
			SELECT 1
			FROM pin_participants pp
			JOIN members m ON m.id = pp.member_id
			WHERE pp.pin_id = p.id AND m.external_id = $1
		)
	`, uid)
}

func (r *Repo) list(ctx context.Context, where string, args ...any) ([]pinrepo.Pin, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	rows, err := r.pool.Query(ctx, fmt.Sprintf(selectPin, "NULL::bytea")+where+`
		ORDER BY p.created_at ASC, p.external_id ASC
	`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]pinrepo.Pin, 0)
	for rows.Next() {
		p, err := scanPin(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) UpdateParents(ctx context.Context, at time.Time, batches ...pinrepo.BoardChanges) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	type parsed struct {
		board   uuid.UUID
		changes []domain.ParentChange
	}
	work := make([]parsed, 0, len(batches))
	for _, b := range batches {
		if len(b.Changes) == 0 {
			continue
		}
		wid, err := uuid.Parse(string(b.WhiteboardID))
		if err != nil {
			return fmt.Errorf("invalid whiteboard id: %w", err)
		}
		work = append(work, parsed{board: wid, changes: b.Changes})
	}
	if len(work) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		for _, w := range work {
			if err := applyChanges(ctx, tx, w.board, w.changes, at, false); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *Repo) Delete(ctx context.Context, id domain.PinID, whiteboardID domain.WhiteboardID, relink []domain.ParentChange, at time.Time) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	pid, err := uuid.Parse(string(id))
	if err != nil {
		return pinrepo.ErrNotFound
	}
	wid, err := uuid.Parse(string(whiteboardID))
	if err != nil {
		return pinrepo.ErrNotFound
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		ct, err := tx.Exec(ctx, `
			DELETE FROM pins
			WHERE external_id = $1
			  AND whiteboard_id = (SELECT id FROM whiteboards WHERE external_id = $2)
		`, pid, wid)
		if err != nil {
			return err
		}
		if ct.RowsAffected() == 0 {
			return pinrepo.ErrNotFound
		}
		return applyChanges(ctx, tx, wid, relink, at, true)
	})
}

func (r *Repo) DeleteByWhiteboard(ctx context.Context, whiteboardID domain.WhiteboardID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(whiteboardID))
	if err != nil {
		return nil
	}
	_, err = r.pool.Exec(ctx, `
		DELETE FROM pins
		WHERE whiteboard_id = (SELECT id FROM whiteboards WHERE external_id = $1)
	`, uid)
	return err
}

func (r *Repo) RemoveParticipantFromTrip(ctx context.Context, tripID domain.TripID, memberID domain.MemberID) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	tid, err := uuid.Parse(string(tripID))
	if err != nil {
		return nil
	}
	mid, err := uuid.Parse(string(memberID))
	if err != nil {
		return nil
	}
	_, err = r.pool.Exec(ctx, `
		DELETE FROM pin_participants pp
		USING pins p, trips t, members m
		WHERE pp.pin_id = p.id
		  AND p.trip_id = t.id
		  AND pp.member_id = m.id
		  AND t.external_id = $1
		  AND m.external_id = $2
	`, tid, mid)
	return err
}

// --- helpers ---

// applyChanges rewrites parent pointers inside tx. With sameBoard the changed pins must
// already sit on board; otherwise they are moved onto it.
func applyChanges(ctx context.Context, tx pgx.Tx, board uuid.UUID, changes []domain.ParentChange, at time.Time, sameBoard bool) error {
	if len(changes) == 0 {
		return nil
	}
	query := `
		UPDATE pins
		SET whiteboard_id = (SELECT id FROM whiteboards WHERE external_id = $2),
		    parent_external_id = $3::uuid,
		    updated_at = $4
		WHERE external_id = $1
	`
	if sameBoard {
		query += ` AND whiteboard_id = (SELECT id FROM whiteboards WHERE external_id = $2)`
	}

	batch := &pgx.Batch{}
	for _, c := range changes {
		pid, err := uuid.Parse(string(c.PinID))
		if err != nil {
			return pinrepo.ErrNotFound
		}
		batch.Queue(query, pid, board, parentColumn(c.ParentID), at.UTC())
	}
	results := tx.SendBatch(ctx, batch)
	for range changes {
		ct, err := results.Exec()
		if err != nil {
			_ = results.Close()
			return err
		}
		if ct.RowsAffected() == 0 {
			_ = results.Close()
			return pinrepo.ErrNotFound
		}
	}
	return results.Close()
}

type pinUUIDs struct {
	pin        uuid.UUID
	trip       uuid.UUID
	whiteboard uuid.UUID
}

func parsePinIDs(p pinrepo.Pin) (pinUUIDs, error) {
	var (
		out pinUUIDs
		err error
	)
	if out.pin, err = uuid.Parse(string(p.ID)); err != nil {
		return out, fmt.Errorf("invalid pin id: %w", err)
	}
	if out.trip, err = uuid.Parse(string(p.TripID)); err != nil {
		return out, fmt.Errorf("invalid trip id: %w", err)
	}
	if out.whiteboard, err = uuid.Parse(string(p.WhiteboardID)); err != nil {
		return out, fmt.Errorf("invalid whiteboard id: %w", err)
	}
	return out, nil
}

func replaceParticipants(ctx context.Context, tx pgx.Tx, pinID uuid.UUID, members []domain.MemberID) error {
	if _, err := tx.Exec(ctx, `
		DELETE FROM pin_participants
		WHERE pin_id = (SELECT id FROM pins WHERE external_id = $1)
	`, pinID); err != nil {
		return err
	}
	for i, m := range members {
		mid, err := uuid.Parse(string(m))
		if err != nil {
			return fmt.Errorf("invalid participant id: %w", err)
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO pin_participants (pin_id, member_id, position)
			VALUES (
				(SELECT id FROM pins WHERE external_id = $1),
				(SELECT id FROM members WHERE external_id = $2),
				$3
			)
			ON CONFLICT (pin_id, member_id) DO NOTHING
		`, pinID, mid, i); err != nil {
			return err
		}
	}
	return nil
}

func scanPin(row pgx.Row) (pinrepo.Pin, error) {
	var (
		id           uuid.UUID
		tripID       uuid.UUID
		whiteboardID uuid.UUID
		parentID     *string
		name         string
		desc         *string
		label        *string
		addr         *string
		lat          *float64
		lng          *float64
		imageType    *string
		imageData    []byte
		expensesRaw  []byte
		participants []string
		createdAt    time.Time
		updatedAt    time.Time
	)
	if err := row.Scan(
		&id,
		&tripID,
		&whiteboardID,
		&parentID,
		&name,
		&desc,
		&label,
		&addr,
		&lat,
		&lng,
		&imageType,
		&imageData,
		&expensesRaw,
		&participants,
		&createdAt,
		&updatedAt,
	); err != nil {
		return pinrepo.Pin{}, err
	}
	expenses, err := decodeExpenses(expensesRaw)
	if err != nil {
		return pinrepo.Pin{}, err
	}

	p := pinrepo.Pin{
		ID:           domain.PinID(id.String()),
		TripID:       domain.TripID(tripID.String()),
		WhiteboardID: domain.WhiteboardID(whiteboardID.String()),
		Name:         name,
		Description:  desc,
		Expenses:     expenses,
		CreatedAt:    createdAt.UTC(),
		UpdatedAt:    updatedAt.UTC(),
	}
	if parentID != nil {
		pid := domain.PinID(*parentID)
		p.ParentID = &pid
	}
	if label != nil {
		p.Location = &domain.Location{Label: *label, Address: addr, Latitude: lat, Longitude: lng}
	}
	if imageType != nil {
		p.Image = &domain.Image{ContentType: *imageType, Data: imageData}
	}
	p.ParticipantIDs = make([]domain.MemberID, 0, len(participants))
	for _, m := range participants {
		p.ParticipantIDs = append(p.ParticipantIDs, domain.MemberID(m))
	}
	return p, nil
}

func encodeExpenses(es []domain.Expense) ([]byte, error) {
	rows := make([]expenseRow, 0, len(es))
	for _, e := range es {
		rows = append(rows, expenseRow{MemberID: string(e.MemberID), Name: e.Name, Amount: e.Amount})
	}
	return json.Marshal(rows)
}

func decodeExpenses(raw []byte) ([]domain.Expense, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []expenseRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode pin expenses: %w", err)
	}
	out := make([]domain.Expense, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.Expense{MemberID: domain.MemberID(r.MemberID), Name: r.Name, Amount: r.Amount})
	}
	return out, nil
}

func parentColumn(p *domain.PinID) *string {
	if p == nil {
		return nil
	}
	v := string(*p)
	return &v
}

func imageColumns(img *domain.Image) (*string, []byte) {
	if img == nil {
		return nil, nil
	}
	ct := img.ContentType
	return &ct, img.Data
}

func locationColumns(l *domain.Location) (*string, *string, *float64, *float64) {
	if l == nil {
		return nil, nil, nil, nil
	}
	label := l.Label
	return &label, l.Address, l.Latitude, l.Longitude
}

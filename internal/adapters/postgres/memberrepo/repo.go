package memberrepo

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	postgres "github.com/tripboard/tripboard-api/internal/adapters/postgres"
	"github.com/tripboard/tripboard-api/internal/domain"
	"github.com/tripboard/tripboard-api/internal/ports/out/memberrepo"
)

const selectMember = `
	SELECT
		m.external_id,
		m.subject_sub,
		m.display_name,
		m.email,
		m.profile_image_url,
		m.is_active,
		m.created_at,
		m.updated_at
	FROM members m
`

// Repo is a Postgres implementation of memberrepo.Repository.
// Subjects are scoped to the JWT issuer the repo was built with.
type Repo struct {
	pool   *pgxpool.Pool
	issuer string
}

func NewRepo(pool *pgxpool.Pool, jwtIssuer string) *Repo {
	return &Repo{pool: pool, issuer: jwtIssuer}
}

func (r *Repo) Create(ctx context.Context, m memberrepo.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return fmt.Errorf("invalid member id: %w", err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO members (
			external_id,
			subject_iss,
			subject_sub,
			display_name,
			email,
			profile_image_url,
			is_active,
			created_at,
			updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		id,
		r.issuer,
		string(m.Subject),
		m.DisplayName,
		m.Email,
		m.ProfileImageURL,
		m.IsActive,
		m.CreatedAt.UTC(),
		m.UpdatedAt.UTC(),
	)
	return mapUniqueViolation(err)
}

func (r *Repo) Update(ctx context.Context, m memberrepo.Member) error {
	if r.pool == nil {
		return errors.New("nil postgres pool")
	}
	id, err := uuid.Parse(string(m.ID))
	if err != nil {
		return memberrepo.ErrNotFound
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		existing, err := getMember(ctx, tx, `WHERE m.external_id = $1 FOR UPDATE`, id)
		if err != nil {
			return err
		}
		// Subject binding is immutable.
		if existing.Subject != m.Subject {
			return memberrepo.ErrSubjectAlreadyBound
		}

		_, err = tx.Exec(ctx, `
			UPDATE members
			SET display_name = $2,
			    email = $3,
			    profile_image_url = $4,
			    is_active = $5,
			    updated_at = $6
			WHERE external_id = $1
		`,
			id,
			m.DisplayName,
			m.Email,
			m.ProfileImageURL,
			m.IsActive,
			m.UpdatedAt.UTC(),
		)
		return mapUniqueViolation(err)
	})
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	uid, err := uuid.Parse(string(id))
	if err != nil {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return getMember(ctx, r.pool, `WHERE m.external_id = $1`, uid)
}

func (r *Repo) GetBySubject(ctx context.Context, subject domain.SubjectID) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	return getMember(ctx, r.pool, `WHERE m.subject_iss = $1 AND m.subject_sub = $2`, r.issuer, string(subject))
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (memberrepo.Member, error) {
	if r.pool == nil {
		return memberrepo.Member{}, errors.New("nil postgres pool")
	}
	email = strings.TrimSpace(email)
	if email == "" {
		return memberrepo.Member{}, memberrepo.ErrNotFound
	}
	return getMember(ctx, r.pool, `WHERE lower(m.email) = lower($1)`, email)
}

func (r *Repo) ListByIDs(ctx context.Context, ids []domain.MemberID) ([]memberrepo.Member, error) {
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
		return []memberrepo.Member{}, nil
	}
	return r.query(ctx, selectMember+`
		WHERE m.external_id = ANY($1::uuid[])
		ORDER BY lower(m.display_name) ASC, m.external_id ASC
	`, keys)
}

func (r *Repo) List(ctx context.Context, includeInactive bool) ([]memberrepo.Member, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	where := ""
	if !includeInactive {
		where = "WHERE m.is_active = true"
	}
	return r.query(ctx, selectMember+where+`
		ORDER BY lower(m.display_name) ASC, m.external_id ASC
	`)
}

func (r *Repo) SearchActiveByDisplayName(ctx context.Context, query string, limit int) ([]memberrepo.Member, error) {
	if r.pool == nil {
		return nil, errors.New("nil postgres pool")
	}
	qTokens := tokenize(query)
	if len(qTokens) == 0 {
		return []memberrepo.Member{}, nil
	}

	var sb strings.Builder
	sb.WriteString(selectMember)
	sb.WriteString(" WHERE m.is_active = true ")
	args := make([]any, 0, len(qTokens))
	for i, tok := range qTokens {
		// Match all tokens (AND) in a case-insensitive way.
		sb.WriteString(fmt.Sprintf(" AND lower(m.display_name) LIKE $%d ", i+1))
		args = append(args, "%"+escapeLike(tok)+"%")
	}
	sb.WriteString(" ORDER BY lower(m.display_name) ASC, m.external_id ASC ")
	if limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT %d ", limit))
	}

	out, err := r.query(ctx, sb.String(), args...)
	if err != nil {
		return nil, err
	}
	// Collation may order differently from the in-memory adapter.
	sortMembersByDisplayName(out)
	return out, nil
}

func (r *Repo) query(ctx context.Context, sql string, args ...any) ([]memberrepo.Member, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]memberrepo.Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// --- helpers ---

func mapUniqueViolation(err error) error {
	if err == nil {
		return nil
	}
	pe, ok := postgres.AsPgError(err)
	if !ok || pe.Code != postgres.UniqueViolationCode {
		return err
	}
	switch pe.ConstraintName {
	case "members_subject_unique":
		return memberrepo.ErrSubjectAlreadyBound
	case "members_external_id_unique":
		return memberrepo.ErrAlreadyExists
	case "members_email_unique":
		return memberrepo.ErrEmailTaken
	default:
		return err
	}
}

func tokenize(s string) []string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func sortMembersByDisplayName(ms []memberrepo.Member) {
	sort.SliceStable(ms, func(i, j int) bool {
		di := strings.ToLower(ms[i].DisplayName)
		dj := strings.ToLower(ms[j].DisplayName)
		if di == dj {
			return string(ms[i].ID) < string(ms[j].ID)
		}
		return di < dj
	})
}

func scanMember(row pgx.Row) (memberrepo.Member, error) {
	var (
		externalID      uuid.UUID
		sub             string
		displayName     string
		email           string
		profileImageURL *string
		isActive        bool
		createdAt       time.Time
		updatedAt       time.Time
	)
	if err := row.Scan(
		&externalID,
		&sub,
		&displayName,
		&email,
		&profileImageURL,
		&isActive,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return memberrepo.Member{}, memberrepo.ErrNotFound
		}
		return memberrepo.Member{}, err
	}
	return memberrepo.Member{
		ID:              domain.MemberID(externalID.String()),
		Subject:         domain.SubjectID(sub),
		DisplayName:     displayName,
		Email:           email,
		ProfileImageURL: profileImageURL,
		IsActive:        isActive,
		CreatedAt:       createdAt.UTC(),
		UpdatedAt:       updatedAt.UTC(),
	}, nil
}

func getMember(ctx context.Context, q interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}, where string, args ...any) (memberrepo.Member, error) {
	return scanMember(q.QueryRow(ctx, selectMember+where, args...))
}

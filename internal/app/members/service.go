package members

import (
	"context"
	"errors"
	"net/mail"
	"net/url"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/tripboard/tripboard-api/internal/domain"
	clockport "github.com/tripboard/tripboard-api/internal/ports/out/clock"
	"github.com/tripboard/tripboard-api/internal/ports/out/memberrepo"
)

type Service struct {
	repo memberrepo.Repository
	clk  clockport.Clock

	newMemberID func() domain.MemberID

	// SearchLimit bounds search result size.
	SearchLimit int
}

func NewService(repo memberrepo.Repository, clk clockport.Clock) *Service {
	return &Service{
		repo: repo,
		clk:  clk,
		newMemberID: func() domain.MemberID {
			return domain.MemberID(uuid.NewString())
		},
		SearchLimit: 50,
	}
}

// SetNewMemberIDForTest overrides member ID generation for deterministic tests.
func (s *Service) SetNewMemberIDForTest(fn func() domain.MemberID) {
	if fn != nil {
		s.newMemberID = fn
	}
}

// ResolveCaller returns the member bound to subject.
func (s *Service) ResolveCaller(ctx context.Context, subject domain.SubjectID) (domain.Member, error) {
	m, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, errNotProvisioned()
		}
		return domain.Member{}, err
	}
	return toDomain(m), nil
}

func (s *Service) ListMembers(ctx context.Context, subject domain.SubjectID, includeInactive bool) ([]domain.Member, error) {
	ms, err := s.repo.List(ctx, includeInactive)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Member, 0, len(ms))
	for _, m := range ms {
		out = append(out, toDomain(m))
	}

	// Ensure caller is included even when inactive and includeInactive=false.
	if !includeInactive {
		if me, err := s.repo.GetBySubject(ctx, subject); err == nil {
			if !me.IsActive && !containsMemberID(out, me.ID) {
				out = append(out, toDomain(me))
				sortMembersByDisplayName(out)
			}
		}
	}

	return out, nil
}

func (s *Service) SearchMembers(ctx context.Context, query string) ([]domain.Member, error) {
	q := strings.TrimSpace(query)
	if len([]rune(q)) < 3 {
		return nil, validationError("q", "invalid search query", "must be at least 3 characters")
	}
	ms, err := s.repo.SearchActiveByDisplayName(ctx, q, s.SearchLimit)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Member, 0, len(ms))
	for _, m := range ms {
		out = append(out, toDomain(m))
	}
	return out, nil
}

// GetMemberByEmail finds an active member by exact (case-insensitive) email, used to add
// people to a trip.
func (s *Service) GetMemberByEmail(ctx context.Context, email string) (domain.Member, error) {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return domain.Member{}, validationError("email", "invalid email", err.Error())
	}
	m, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, &Error{Status: 404, Code: "MEMBER_NOT_FOUND", Message: "no member with that email"}
		}
		return domain.Member{}, err
	}
	if !m.IsActive {
		return domain.Member{}, &Error{Status: 404, Code: "MEMBER_NOT_FOUND", Message: "no member with that email"}
	}
	return toDomain(m), nil
}

func (s *Service) GetMyMemberProfile(ctx context.Context, subject domain.SubjectID) (domain.Member, error) {
	return s.ResolveCaller(ctx, subject)
}

func (s *Service) CreateMyMember(ctx context.Context, subject domain.SubjectID, in CreateMyMemberInput) (domain.Member, error) {
	// Ensure no existing binding.
	if _, err := s.repo.GetBySubject(ctx, subject); err == nil {
		return domain.Member{}, errAlreadyExists()
	} else if !errors.Is(err, memberrepo.ErrNotFound) {
		return domain.Member{}, err
	}

	displayName := domain.NormalizeHumanName(in.DisplayName)
	if displayName == "" {
		return domain.Member{}, validationError("displayName", "invalid displayName", "must be non-empty")
	}
	email := strings.TrimSpace(in.Email)
	if err := validateEmail(email); err != nil {
		return domain.Member{}, validationError("email", "invalid email", err.Error())
	}
	if err := s.ensureEmailUnique(ctx, email, ""); err != nil {
		return domain.Member{}, err
	}
	var imageURL *string
	if in.ProfileImageURL != nil {
		u := strings.TrimSpace(*in.ProfileImageURL)
		if err := validateImageURL(u); err != nil {
			return domain.Member{}, validationError("profileImageUrl", "invalid profileImageUrl", err.Error())
		}
		imageURL = &u
	}

	now := s.clk.Now()
	m := memberrepo.Member{
		ID:              s.newMemberID(),
		Subject:         subject,
		DisplayName:     displayName,
		Email:           email,
		ProfileImageURL: imageURL,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.repo.Create(ctx, m); err != nil {
		switch {
		case errors.Is(err, memberrepo.ErrSubjectAlreadyBound):
			return domain.Member{}, errAlreadyExists()
		case errors.Is(err, memberrepo.ErrEmailTaken):
			return domain.Member{}, errEmailInUse()
		}
		return domain.Member{}, err
	}
	return toDomain(m), nil
}

func (s *Service) UpdateMyMemberProfile(ctx context.Context, subject domain.SubjectID, in UpdateMyMemberProfileInput) (domain.Member, error) {
	m, err := s.repo.GetBySubject(ctx, subject)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, errNotProvisioned()
		}
		return domain.Member{}, err
	}

	if in.DisplayName.IsSpecified() {
		if in.DisplayName.IsNull() {
			return domain.Member{}, validationError("displayName", "invalid displayName", "cannot be null")
		}
		displayName := domain.NormalizeHumanName(in.DisplayName.Value())
		if displayName == "" {
			return domain.Member{}, validationError("displayName", "invalid displayName", "must be non-empty")
		}
		m.DisplayName = displayName
	}

	if in.Email.IsSpecified() {
		if in.Email.IsNull() {
			return domain.Member{}, validationError("email", "invalid email", "cannot be null")
		}
		email := strings.TrimSpace(in.Email.Value())
		if err := validateEmail(email); err != nil {
			return domain.Member{}, validationError("email", "invalid email", err.Error())
		}
		if err := s.ensureEmailUnique(ctx, email, m.ID); err != nil {
			return domain.Member{}, err
		}
		m.Email = email
	}

	if in.ProfileImageURL.IsSpecified() {
		if in.ProfileImageURL.IsNull() {
			m.ProfileImageURL = nil
		} else {
			u := strings.TrimSpace(in.ProfileImageURL.Value())
			if err := validateImageURL(u); err != nil {
				return domain.Member{}, validationError("profileImageUrl", "invalid profileImageUrl", err.Error())
			}
			m.ProfileImageURL = &u
		}
	}

	m.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, m); err != nil {
		if errors.Is(err, memberrepo.ErrEmailTaken) {
			return domain.Member{}, errEmailInUse()
		}
		return domain.Member{}, err
	}
	return toDomain(m), nil
}

func validateEmail(email string) error {
	if email == "" {
		return errors.New("must be non-empty")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return err
	}
	// Ensure no "Name <email@x>" format sneaks in.
	if addr.Address != email {
		return errors.New("must be a bare email address")
	}
	return nil
}

func validateImageURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if (u.Scheme != "https" && u.Scheme != "http") || u.Host == "" {
		return errors.New("must be an absolute http(s) URL")
	}
	return nil
}

func (s *Service) ensureEmailUnique(ctx context.Context, email string, exclude domain.MemberID) error {
	m, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return nil
		}
		return err
	}
	if exclude != "" && m.ID == exclude {
		return nil
	}
	return errEmailInUse()
}

func toDomain(m memberrepo.Member) domain.Member {
	return domain.Member{
		ID:              m.ID,
		Subject:         m.Subject,
		DisplayName:     m.DisplayName,
		Email:           m.Email,
		ProfileImageURL: cloneStringPtr(m.ProfileImageURL),
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt,
		UpdatedAt:       m.UpdatedAt,
	}
}

func cloneStringPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func containsMemberID(ms []domain.Member, id domain.MemberID) bool {
	for _, m := range ms {
		if m.ID == id {
			return true
		}
	}
	return false
}

func sortMembersByDisplayName(ms []domain.Member) {
	sort.Slice(ms, func(i, j int) bool {
		di := strings.ToLower(ms[i].DisplayName)
		dj := strings.ToLower(ms[j].DisplayName)
		if di == dj {
			return string(ms[i].ID) < string(ms[j].ID)
		}
		return di < dj
	})
}

// Package services holds the business rules of the grants API. Handlers call
// services; services call repositories.
//
// Every error a service returns is an *envelope.Error, so handlers can answer
// with envelope.As(err) without inspecting it further.
package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/mattlim-fl/ai-grant-applications/internal/database"
	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
	"github.com/mattlim-fl/ai-grant-applications/internal/repository"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
)

// MsgNotMember is returned when switching to an organization the caller does
// not belong to.
const MsgNotMember = "Not a member of this organization"

// OrganizationService manages organizations, memberships and each user's
// current organization pointer.
//
// Dependencies:
//   - OrganizationRepository, MembershipRepository, ProfileRepository
//   - ValidationService: name and id checks
//
// Related:
//   - OrganizationHandler (handlers/organizations.go)
//   - orgctx.Context on the client side
type OrganizationService struct {
	orgs      *repository.OrganizationRepository
	members   *repository.MembershipRepository
	profiles  *repository.ProfileRepository
	validator *security.ValidationService
	now       func() time.Time
}

// NewOrganizationService creates an OrganizationService backed by database.DB.
func NewOrganizationService(validator *security.ValidationService) *OrganizationService {
	return &OrganizationService{
		orgs:      repository.NewOrganizationRepository(),
		members:   repository.NewMembershipRepository(),
		profiles:  repository.NewProfileRepository(),
		validator: validator,
		now:       time.Now,
	}
}

// List returns the caller's organizations with their role in each.
func (s *OrganizationService) List(ctx context.Context, userID string) ([]models.OrganizationWithRole, error) {
	orgs, err := s.orgs.ListForUser(ctx, userID)
	if err != nil {
		return nil, envelope.Database(err)
	}
	return orgs, nil
}

// Create makes a new organization owned by userID and points the user's
// profile at it.
//
// Creates deriving the same slug are serialized on an advisory lock. The
// slug probe, the organization insert, the owner membership and the
// profile pointer are written in one transaction: either all of them land or
// none do.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - userID: Caller, becomes the owner
//   - name: Display name; surrounding whitespace is trimmed
//
// Returns:
//   - *models.OrganizationWithRole: The new organization with role "owner"
//   - error: VALIDATION_ERROR for a blank or oversized name, DATABASE_ERROR otherwise
func (s *OrganizationService) Create(ctx context.Context, userID, name string) (*models.OrganizationWithRole, error) {
	if err := s.validator.ValidateName(name); err != nil {
		return nil, envelope.Validation(err.Error())
	}

	org := models.Organization{Name: s.validator.SanitizeString(name)}
	slug := Slugify(org.Name)

	err := database.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.orgs.WithTx(tx).LockSlug(ctx, slug); err != nil {
			return err
		}
		taken, err := s.orgs.WithTx(tx).SlugExists(ctx, slug)
		if err != nil {
			return err
		}
		org.Slug = slug
		if taken {
			org.Slug = uniqueSuffix(slug, s.now())
		}

		if err := s.orgs.WithTx(tx).Create(ctx, &org); err != nil {
			return err
		}

		member := models.Membership{OrganizationID: org.ID, UserID: userID, Role: models.RoleOwner}
		if err := s.members.WithTx(tx).Add(ctx, &member); err != nil {
			return err
		}

		return s.profiles.WithTx(tx).SetCurrentOrganization(ctx, userID, org.ID)
	})
	if err != nil {
		return nil, envelope.Database(err)
	}

	return &models.OrganizationWithRole{Organization: org, Role: models.RoleOwner}, nil
}

// Current returns the caller's current organization, or nil when the pointer
// is unset or refers to an organization the caller no longer belongs to.
// It never writes; promoting a default is the client's EnsureCurrent command.
func (s *OrganizationService) Current(ctx context.Context, userID string) (*models.OrganizationWithRole, error) {
	profile, err := s.profiles.Get(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, envelope.Database(err)
	}
	if profile.CurrentOrganizationID == nil {
		return nil, nil
	}

	org, err := s.orgs.GetForMember(ctx, *profile.CurrentOrganizationID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, envelope.Database(err)
	}
	return org, nil
}

// Switch points the caller's profile at orgID. The pointer is left untouched
// unless the caller is a member.
//
// Returns:
//   - *models.OrganizationWithRole: The new current organization
//   - error: VALIDATION_ERROR when orgID is blank, FORBIDDEN without membership,
//     DATABASE_ERROR otherwise
func (s *OrganizationService) Switch(ctx context.Context, userID, orgID string) (*models.OrganizationWithRole, error) {
	orgID = strings.TrimSpace(orgID)
	if err := s.validator.ValidateRequired("organization_id", orgID); err != nil {
		return nil, envelope.Validation(err.Error())
	}
	// A malformed id cannot have a membership row.
	if s.validator.ValidateUUID("organization_id", orgID) != nil {
		return nil, envelope.Forbidden(MsgNotMember)
	}

	org, err := s.orgs.GetForMember(ctx, orgID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, envelope.Forbidden(MsgNotMember)
	}
	if err != nil {
		return nil, envelope.Database(err)
	}

	if err := s.profiles.SetCurrentOrganization(ctx, userID, orgID); err != nil {
		return nil, envelope.Database(err)
	}
	return org, nil
}

// Me assembles the /me payload for an authenticated caller. The profile is
// optional; a user who never completed signup still gets a response.
func (s *OrganizationService) Me(ctx context.Context, userID, email string) (*models.Me, error) {
	me := &models.Me{ID: userID, Email: email}

	profile, err := s.profiles.Get(ctx, userID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return nil, envelope.Database(err)
	default:
		me.FullName = profile.FullName
		role := profile.Role
		me.Role = &role
		me.CurrentOrganizationID = profile.CurrentOrganizationID
	}

	count, err := s.members.CountForUser(ctx, userID)
	if err != nil {
		return nil, envelope.Database(err)
	}
	me.HasOrganization = count > 0
	me.NeedsOnboarding = !me.HasOrganization
	return me, nil
}

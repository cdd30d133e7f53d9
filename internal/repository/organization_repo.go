package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
)

// OrganizationRepository handles the organizations table and the
// member-scoped views of it.
type OrganizationRepository struct {
	conn
}

// NewOrganizationRepository creates a new instance of OrganizationRepository.
func NewOrganizationRepository() *OrganizationRepository {
	return &OrganizationRepository{}
}

// WithTx returns a repository that runs its statements inside tx.
func (r *OrganizationRepository) WithTx(tx pgx.Tx) *OrganizationRepository {
	return &OrganizationRepository{conn{tx: tx}}
}

// SlugExists reports whether an organization already uses slug.
func (r *OrganizationRepository) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := r.db().QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM organizations WHERE slug = $1)`, slug).Scan(&exists)
	return exists, err
}

// LockSlug blocks other transactions locking the same slug until the
// surrounding transaction ends.
func (r *OrganizationRepository) LockSlug(ctx context.Context, slug string) error {
	_, err := r.db().Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, slug)
	return err
}

// Create inserts a new organization.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - org: Organization with Name and Slug set
//
// Returns:
//   - error: Database error if insertion fails (e.g., duplicate slug), nil on success
//
// Side Effects: Populates org.ID, org.CreatedAt and org.UpdatedAt
func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := `
		INSERT INTO organizations (name, slug)
		VALUES ($1, $2)
		RETURNING id, created_at, updated_at
	`

	return r.db().QueryRow(ctx, query, org.Name, org.Slug).
		Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)
}

// ListForUser returns every organization userID belongs to, with the user's
// role, oldest membership first. The first row is the one promoted to
// "current" when a session has none.
func (r *OrganizationRepository) ListForUser(ctx context.Context, userID string) ([]models.OrganizationWithRole, error) {
	query := `
		SELECT o.id, o.name, o.slug, o.created_at, o.updated_at, m.role
		FROM organization_members m
		JOIN organizations o ON o.id = m.organization_id
		WHERE m.user_id = $1
		ORDER BY m.created_at, o.name
	`

	rows, err := r.db().Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orgs := []models.OrganizationWithRole{}
	for rows.Next() {
		var o models.OrganizationWithRole
		if err := rows.Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt, &o.UpdatedAt, &o.Role); err != nil {
			return nil, err
		}
		orgs = append(orgs, o)
	}

	return orgs, rows.Err()
}

// GetForMember returns the organization with userID's role in it.
// Returns ErrNotFound when the organization does not exist or userID is not a member.
func (r *OrganizationRepository) GetForMember(ctx context.Context, orgID, userID string) (*models.OrganizationWithRole, error) {
	query := `
		SELECT o.id, o.name, o.slug, o.created_at, o.updated_at, m.role
		FROM organization_members m
		JOIN organizations o ON o.id = m.organization_id
		WHERE m.organization_id = $1 AND m.user_id = $2
	`

	var o models.OrganizationWithRole
	err := r.db().QueryRow(ctx, query, orgID, userID).
		Scan(&o.ID, &o.Name, &o.Slug, &o.CreatedAt, &o.UpdatedAt, &o.Role)
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
)

// ProfileRepository handles per-user profile rows, including the current
// organization pointer.
type ProfileRepository struct {
	conn
}

// NewProfileRepository creates a new instance of ProfileRepository.
func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{}
}

// WithTx returns a repository that runs its statements inside tx.
func (r *ProfileRepository) WithTx(tx pgx.Tx) *ProfileRepository {
	return &ProfileRepository{conn{tx: tx}}
}

// Get returns the profile for userID, or ErrNotFound.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*models.Profile, error) {
	query := `
		SELECT id, full_name, role, current_organization_id, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	var p models.Profile
	err := r.db().QueryRow(ctx, query, userID).
		Scan(&p.ID, &p.FullName, &p.Role, &p.CurrentOrganizationID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// SetCurrentOrganization points userID's profile at orgID. The profile row is
// created if signup did not create one.
func (r *ProfileRepository) SetCurrentOrganization(ctx context.Context, userID, orgID string) error {
	query := `
		INSERT INTO profiles (id, current_organization_id)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE
		SET current_organization_id = EXCLUDED.current_organization_id,
		    updated_at = now()
	`
	_, err := r.db().Exec(ctx, query, userID, orgID)
	return err
}

package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
)

// MembershipRepository handles organization_members rows.
type MembershipRepository struct {
	conn
}

// NewMembershipRepository creates a new instance of MembershipRepository.
func NewMembershipRepository() *MembershipRepository {
	return &MembershipRepository{}
}

// WithTx returns a repository that runs its statements inside tx.
func (r *MembershipRepository) WithTx(tx pgx.Tx) *MembershipRepository {
	return &MembershipRepository{conn{tx: tx}}
}

// Add inserts a membership and populates m.CreatedAt.
func (r *MembershipRepository) Add(ctx context.Context, m *models.Membership) error {
	query := `
		INSERT INTO organization_members (organization_id, user_id, role)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	return r.db().QueryRow(ctx, query, m.OrganizationID, m.UserID, m.Role).Scan(&m.CreatedAt)
}

// Role returns userID's role in orgID, or ErrNotFound if there is no membership row.
func (r *MembershipRepository) Role(ctx context.Context, orgID, userID string) (string, error) {
	var role string
	err := r.db().QueryRow(ctx,
		`SELECT role FROM organization_members WHERE organization_id = $1 AND user_id = $2`,
		orgID, userID).Scan(&role)
	if err != nil {
		return "", notFound(err)
	}
	return role, nil
}

// CountForUser returns how many organizations userID belongs to.
func (r *MembershipRepository) CountForUser(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.db().QueryRow(ctx,
		`SELECT COUNT(*) FROM organization_members WHERE user_id = $1`, userID).Scan(&n)
	return n, err
}

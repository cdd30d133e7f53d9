package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
)

// visibleTo restricts p to projects the caller ($1) created or whose creator
// shares an organization with the caller.
const visibleTo = `
	(p.created_by = $1 OR EXISTS (
		SELECT 1
		FROM organization_members mine
		JOIN organization_members theirs ON theirs.organization_id = mine.organization_id
		WHERE mine.user_id = $1 AND theirs.user_id = p.created_by
	))`

const projectColumns = `p.id, p.name, p.funder, p.deadline::text, p.status, p.created_by, p.created_at, p.updated_at`

// ProjectRepository handles project rows. Read methods are scoped to what a
// given user may see.
type ProjectRepository struct {
	conn
}

// NewProjectRepository creates a new instance of ProjectRepository.
func NewProjectRepository() *ProjectRepository {
	return &ProjectRepository{}
}

// WithTx returns a repository that runs its statements inside tx.
func (r *ProjectRepository) WithTx(tx pgx.Tx) *ProjectRepository {
	return &ProjectRepository{conn{tx: tx}}
}

// ListVisible returns the projects userID can see with their document counts,
// most recently updated first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - userID: Caller's user id
//
// Returns:
//   - []models.ProjectWithCount: Never nil
//   - error: Database error if query fails
//
// Database: LEFT JOIN with documents to count sections
func (r *ProjectRepository) ListVisible(ctx context.Context, userID string) ([]models.ProjectWithCount, error) {
	query := `
		SELECT ` + projectColumns + `, COUNT(d.id) AS documents_count
		FROM projects p
		LEFT JOIN documents d ON d.project_id = p.id
		WHERE ` + visibleTo + `
		GROUP BY p.id
		ORDER BY p.updated_at DESC
	`

	rows, err := r.db().Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	projects := []models.ProjectWithCount{}
	for rows.Next() {
		var p models.ProjectWithCount
		if err := scanProject(rows, &p.Project, &p.DocumentsCount); err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}

	return projects, rows.Err()
}

// GetVisible returns a project if userID can see it, ErrNotFound otherwise.
func (r *ProjectRepository) GetVisible(ctx context.Context, userID, projectID string) (*models.Project, error) {
	query := `
		SELECT ` + projectColumns + `
		FROM projects p
		WHERE p.id = $2 AND ` + visibleTo

	var p models.Project
	if err := scanProject(r.db().QueryRow(ctx, query, userID, projectID), &p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Create inserts a project and populates its generated fields.
// Deadline is passed as a YYYY-MM-DD string or nil.
func (r *ProjectRepository) Create(ctx context.Context, p *models.Project) error {
	query := `
		INSERT INTO projects (name, funder, deadline, status, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	return r.db().QueryRow(ctx, query, p.Name, p.Funder, p.Deadline, p.Status, p.CreatedBy).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// Update writes only the fields set in u and returns the updated row.
// Callers must reject an empty update before calling.
func (r *ProjectRepository) Update(ctx context.Context, projectID string, u models.ProjectUpdate) (*models.Project, error) {
	set := &setBuilder{}
	setOptional(set, "name", u.Name)
	setOptional(set, "funder", u.Funder)
	setOptional(set, "deadline", u.Deadline)
	setOptional(set, "status", u.Status)
	if set.empty() {
		return nil, fmt.Errorf("project update has no fields")
	}

	query := fmt.Sprintf(`
		UPDATE projects p
		SET %s, updated_at = now()
		WHERE p.id = $%d
		RETURNING %s
	`, set.clause(), set.next(), projectColumns)

	var p models.Project
	if err := scanProject(r.db().QueryRow(ctx, query, set.with(projectID)...), &p); err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// Touch bumps updated_at so document edits float the project up the list.
func (r *ProjectRepository) Touch(ctx context.Context, projectID string) error {
	_, err := r.db().Exec(ctx, `UPDATE projects SET updated_at = now() WHERE id = $1`, projectID)
	return err
}

// Lock holds the project row until the surrounding transaction ends, so
// document appends to the same project run one at a time.
func (r *ProjectRepository) Lock(ctx context.Context, projectID string) error {
	_, err := r.db().Exec(ctx, `SELECT 1 FROM projects WHERE id = $1 FOR UPDATE`, projectID)
	return err
}

// Delete removes a project; its documents go with it (ON DELETE CASCADE).
func (r *ProjectRepository) Delete(ctx context.Context, projectID string) error {
	_, err := r.db().Exec(ctx, `DELETE FROM projects WHERE id = $1`, projectID)
	return err
}

func scanProject(row pgx.Row, p *models.Project, extra ...any) error {
	dest := []any{&p.ID, &p.Name, &p.Funder, &p.Deadline, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt}
	return row.Scan(append(dest, extra...)...)
}

// setBuilder accumulates "column = $n" clauses for partial updates.
type setBuilder struct {
	clauses []string
	args    []any
}

func (s *setBuilder) add(column string, value any) {
	s.args = append(s.args, value)
	s.clauses = append(s.clauses, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

func (s *setBuilder) empty() bool    { return len(s.clauses) == 0 }
func (s *setBuilder) clause() string { return strings.Join(s.clauses, ", ") }
func (s *setBuilder) next() int      { return len(s.args) + 1 }

// with returns the collected args followed by extra trailing args.
func (s *setBuilder) with(extra ...any) []any {
	return append(append([]any{}, s.args...), extra...)
}

func setOptional[T any](s *setBuilder, column string, o models.Optional[T]) {
	if !o.Set {
		return
	}
	if o.Null {
		s.add(column, nil)
		return
	}
	s.add(column, o.Value)
}

package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
)

const documentColumns = `id, project_id, title, content, sort_order, created_at, updated_at`

// DocumentRepository handles document rows. Every statement is scoped by
// project_id so a document can never be reached through another project.
type DocumentRepository struct {
	conn
}

// NewDocumentRepository creates a new instance of DocumentRepository.
func NewDocumentRepository() *DocumentRepository {
	return &DocumentRepository{}
}

// WithTx returns a repository that runs its statements inside tx.
func (r *DocumentRepository) WithTx(tx pgx.Tx) *DocumentRepository {
	return &DocumentRepository{conn{tx: tx}}
}

// ListByProject returns the project's documents ordered by sort_order.
func (r *DocumentRepository) ListByProject(ctx context.Context, projectID string) ([]models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE project_id = $1 ORDER BY sort_order, created_at`

	rows, err := r.db().Query(ctx, query, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}

	return docs, rows.Err()
}

// Get returns one document of the project, or ErrNotFound.
func (r *DocumentRepository) Get(ctx context.Context, projectID, docID string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1 AND project_id = $2`

	var d models.Document
	if err := scanDocument(r.db().QueryRow(ctx, query, docID, projectID), &d); err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// Create inserts d into its project.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - d: Document with ProjectID, Title and Content set
//   - sortOrder: Explicit position, or nil to append after the current maximum
//
// Side Effects: Populates d.ID, d.SortOrder, d.CreatedAt and d.UpdatedAt
func (r *DocumentRepository) Create(ctx context.Context, d *models.Document, sortOrder *int) error {
	query := `
		INSERT INTO documents (project_id, title, content, sort_order)
		VALUES ($1, $2, $3, COALESCE($4::int,
			(SELECT COALESCE(MAX(sort_order) + 1, 0) FROM documents WHERE project_id = $1)))
		RETURNING id, sort_order, created_at, updated_at
	`

	return r.db().QueryRow(ctx, query, d.ProjectID, d.Title, d.Content, sortOrder).
		Scan(&d.ID, &d.SortOrder, &d.CreatedAt, &d.UpdatedAt)
}

// Update writes only the fields set in u and returns the updated row.
func (r *DocumentRepository) Update(ctx context.Context, projectID, docID string, u models.DocumentUpdate) (*models.Document, error) {
	set := &setBuilder{}
	setOptional(set, "title", u.Title)
	setOptional(set, "content", u.Content)
	setOptional(set, "sort_order", u.SortOrder)
	if set.empty() {
		return nil, fmt.Errorf("document update has no fields")
	}

	query := fmt.Sprintf(`
		UPDATE documents
		SET %s, updated_at = now()
		WHERE id = $%d AND project_id = $%d
		RETURNING %s
	`, set.clause(), set.next(), set.next()+1, documentColumns)

	var d models.Document
	if err := scanDocument(r.db().QueryRow(ctx, query, set.with(docID, projectID)...), &d); err != nil {
		return nil, notFound(err)
	}
	return &d, nil
}

// Delete removes a document. Returns ErrNotFound when nothing matched.
func (r *DocumentRepository) Delete(ctx context.Context, projectID, docID string) error {
	tag, err := r.db().Exec(ctx, `DELETE FROM documents WHERE id = $1 AND project_id = $2`, docID, projectID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// LockIDs returns the ids of every document in the project and locks those
// rows until the surrounding transaction ends.
func (r *DocumentRepository) LockIDs(ctx context.Context, projectID string) ([]string, error) {
	rows, err := r.db().Query(ctx,
		`SELECT id FROM documents WHERE project_id = $1 ORDER BY sort_order FOR UPDATE`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SetSortOrder moves one document to position. The (project_id, sort_order)
// uniqueness check is deferred to commit, so a transaction may pass through
// duplicate positions while permuting.
func (r *DocumentRepository) SetSortOrder(ctx context.Context, projectID, docID string, position int) error {
	_, err := r.db().Exec(ctx,
		`UPDATE documents SET sort_order = $1, updated_at = now() WHERE id = $2 AND project_id = $3`,
		position, docID, projectID)
	return err
}

func scanDocument(row pgx.Row, d *models.Document) error {
	return row.Scan(&d.ID, &d.ProjectID, &d.Title, &d.Content, &d.SortOrder, &d.CreatedAt, &d.UpdatedAt)
}

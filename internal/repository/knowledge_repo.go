package repository

import (
	"context"

	"github.com/mattlim-fl/ai-grant-applications/internal/models"
)

// KnowledgeFileRepository reads knowledge base file metadata. Rows are
// written by the ingestion pipeline, never by this service.
type KnowledgeFileRepository struct {
	conn
}

// NewKnowledgeFileRepository creates a new instance of KnowledgeFileRepository.
func NewKnowledgeFileRepository() *KnowledgeFileRepository {
	return &KnowledgeFileRepository{}
}

// ListByOrganization returns the organization's files, newest first.
func (r *KnowledgeFileRepository) ListByOrganization(ctx context.Context, orgID string) ([]models.KnowledgeFile, error) {
	query := `
		SELECT id, organization_id, filename, file_size, mime_type, status, error_message, created_at
		FROM knowledge_files
		WHERE organization_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db().Query(ctx, query, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	files := []models.KnowledgeFile{}
	for rows.Next() {
		var f models.KnowledgeFile
		err := rows.Scan(&f.ID, &f.OrganizationID, &f.Filename, &f.FileSize, &f.MimeType,
			&f.Status, &f.ErrorMessage, &f.CreatedAt)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	return files, rows.Err()
}

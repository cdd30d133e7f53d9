package repository_test

import (
	"context"
	"testing"

	"github.com/mattlim-fl/ai-grant-applications/internal/models"
	"github.com/mattlim-fl/ai-grant-applications/internal/repository"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var documentCols = []string{"id", "project_id", "title", "content", "sort_order", "created_at", "updated_at"}

func TestDocumentRepository_ListByProject(t *testing.T) {
	// Arrange
	mock := newMock(t)
	rows := pgxmock.NewRows(documentCols).
		AddRow("d-1", "p-1", "About Us", "We are...", 0, testTime, testTime).
		AddRow("d-2", "p-1", "Statement of Need", "", 1, testTime, testTime)
	mock.ExpectQuery("FROM documents WHERE project_id = (.+) ORDER BY sort_order").
		WithArgs("p-1").
		WillReturnRows(rows)

	// Act
	docs, err := repository.NewDocumentRepository().ListByProject(context.Background(), "p-1")

	// Assert
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "About Us", docs[0].Title)
	assert.Equal(t, 1, docs[1].SortOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestDocumentRepository_Create_AppendsByDefault verifies a nil sort order is
// passed through so the database computes max+1.
func TestDocumentRepository_Create_AppendsByDefault(t *testing.T) {
	// Arrange
	mock := newMock(t)
	mock.ExpectQuery("INSERT INTO documents(.+)COALESCE(.+)MAX\\(sort_order\\) \\+ 1").
		WithArgs("p-1", "Budget", "", pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"id", "sort_order", "created_at", "updated_at"}).
			AddRow("d-3", 2, testTime, testTime))

	doc := &models.Document{ProjectID: "p-1", Title: "Budget"}

	// Act
	err := repository.NewDocumentRepository().Create(context.Background(), doc, nil)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "d-3", doc.ID)
	assert.Equal(t, 2, doc.SortOrder)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// TestDocumentRepository_Update_TitleOnly verifies a title patch leaves content
// and sort_order out of the statement.
func TestDocumentRepository_Update_TitleOnly(t *testing.T) {
	// Arrange
	mock := newMock(t)
	mock.ExpectQuery(`UPDATE documents SET title = \$1, updated_at = now\(\) WHERE id = \$2 AND project_id = \$3`).
		WithArgs("New title", "d-1", "p-1").
		WillReturnRows(pgxmock.NewRows(documentCols).
			AddRow("d-1", "p-1", "New title", "unchanged body", 0, testTime, testTime))

	// Act
	doc, err := repository.NewDocumentRepository().Update(context.Background(), "p-1", "d-1",
		models.DocumentUpdate{Title: models.Some("New title")})

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "unchanged body", doc.Content)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_Delete_NotFound(t *testing.T) {
	mock := newMock(t)
	mock.ExpectExec("DELETE FROM documents").
		WithArgs("d-9", "p-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repository.NewDocumentRepository().Delete(context.Background(), "p-1", "d-9")

	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentRepository_LockIDsAndSetSortOrder(t *testing.T) {
	// Arrange
	mock := newMock(t)
	mock.ExpectQuery("SELECT id FROM documents(.+)FOR UPDATE").
		WithArgs("p-1").
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("d-1").AddRow("d-2"))
	mock.ExpectExec("UPDATE documents SET sort_order").
		WithArgs(0, "d-2", "p-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	repo := repository.NewDocumentRepository()

	// Act
	ids, err := repo.LockIDs(context.Background(), "p-1")
	require.NoError(t, err)
	err = repo.SetSortOrder(context.Background(), "p-1", "d-2", 0)

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, []string{"d-1", "d-2"}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestKnowledgeFileRepository_ListByOrganization(t *testing.T) {
	mock := newMock(t)
	mock.ExpectQuery("FROM knowledge_files").
		WithArgs("org-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "organization_id", "filename", "file_size", "mime_type", "status", "error_message", "created_at"}).
			AddRow("k-1", "org-1", "annual-report.pdf", int64(20480), "application/pdf", "ready", (*string)(nil), testTime))

	files, err := repository.NewKnowledgeFileRepository().ListByOrganization(context.Background(), "org-1")

	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, models.FileStatusReady, files[0].Status)
	assert.Equal(t, int64(20480), files[0].FileSize)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package services

import (
	"testing"
	"time"

	"github.com/mattlim-fl/ai-grant-applications/internal/database"
	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userID  = "3f0c9a52-7a8e-4d4e-9a51-0c1d2e3f4a5b"
	orgID   = "9b2e6f10-1c2d-4e5f-8a9b-0c1d2e3f4a01"
	projID  = "a1b2c3d4-0000-4000-8000-000000000001"
	docID1  = "d0c00000-0000-4000-8000-000000000001"
	docID2  = "d0c00000-0000-4000-8000-000000000002"
	docID3  = "d0c00000-0000-4000-8000-000000000003"
	missing = "00000000-0000-4000-8000-00000000dead"
)

var testTime = time.Date(2025, 10, 25, 12, 0, 0, 0, time.UTC)

var (
	orgColumns     = []string{"id", "name", "slug", "created_at", "updated_at", "role"}
	profileColumns = []string{"id", "full_name", "role", "current_organization_id", "created_at", "updated_at"}
	projectColumns = []string{"id", "name", "funder", "deadline", "status", "created_by", "created_at", "updated_at"}
	documentColumn = []string{"id", "project_id", "title", "content", "sort_order", "created_at", "updated_at"}
)

// newMock creates a pgxmock pool and injects it into database.DB for the
// duration of the test.
func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = mock
	t.Cleanup(func() {
		database.DB = oldDB
		mock.Close()
	})
	return mock
}

func validator() *security.ValidationService {
	return security.NewValidationService(security.DefaultSecurityConfig())
}

func strPtr(s string) *string { return &s }

// assertCode checks err is an envelope error of the given kind.
func assertCode(t *testing.T, err error, code envelope.Code) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, envelope.As(err).Code, "got %v", err)
}

func projectRow(rows *pgxmock.Rows, id, name string) *pgxmock.Rows {
	return rows.AddRow(id, name, (*string)(nil), (*string)(nil), "draft", userID, testTime, testTime)
}

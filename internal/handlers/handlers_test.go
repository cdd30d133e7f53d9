package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/mattlim-fl/ai-grant-applications/internal/database"
	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/middleware"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("handlers-test-secret-32-bytes-long!!")

const (
	userID = "3f0c9a52-7a8e-4d4e-9a51-0c1d2e3f4a5b"
	orgID  = "9b2e6f10-1c2d-4e5f-8a9b-0c1d2e3f4a01"
	projID = "a1b2c3d4-0000-4000-8000-000000000001"
	docID1 = "d0c00000-0000-4000-8000-000000000001"
	docID2 = "d0c00000-0000-4000-8000-000000000002"
)

var testTime = time.Date(2025, 10, 25, 12, 0, 0, 0, time.UTC)

var (
	orgColumns     = []string{"id", "name", "slug", "created_at", "updated_at", "role"}
	profileColumns = []string{"id", "full_name", "role", "current_organization_id", "created_at", "updated_at"}
	projectColumns = []string{"id", "name", "funder", "deadline", "status", "created_by", "created_at", "updated_at"}
	documentColumn = []string{"id", "project_id", "title", "content", "sort_order", "created_at", "updated_at"}
)

// testServer wires the full route table against a pgxmock pool.
type testServer struct {
	app  *fiber.App
	mock pgxmock.PgxPoolIface
	logs *bytes.Buffer
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)

	oldDB := database.DB
	database.DB = mock

	logs := &bytes.Buffer{}
	app := fiber.New()
	app.Use(middleware.RequestID())
	stop := RegisterRoutes(app, Options{
		JWTSecret: testSecret,
		Logger:    security.NewLoggerTo(logs),
		Config:    security.DefaultSecurityConfig(),
	})

	t.Cleanup(func() {
		stop()
		database.DB = oldDB
		mock.Close()
	})
	return &testServer{app: app, mock: mock, logs: logs}
}

func token(t *testing.T) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, middleware.SessionClaims{
		Email: "writer@example.org",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString(testSecret)
	require.NoError(t, err)
	return signed
}

// do sends an authenticated request and decodes the envelope.
func (s *testServer) do(t *testing.T, method, path, body string) (int, envelope.Raw) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Authorization", "Bearer "+token(t))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.send(t, req)
}

func (s *testServer) send(t *testing.T, req *http.Request) (int, envelope.Raw) {
	t.Helper()
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var env envelope.Raw
	require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	return resp.StatusCode, env
}

func (s *testServer) expectVisible(id string) {
	s.mock.ExpectQuery("FROM projects p WHERE p.id = \\$2").
		WithArgs(userID, id).
		WillReturnRows(pgxmock.NewRows(projectColumns).
			AddRow(id, "Arts Grant", (*string)(nil), (*string)(nil), "draft", userID, testTime, testTime))
}

func TestRoutes_RequireSession(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{"/me", "/organizations", "/projects", "/knowledge-files"} {
		status, env := s.send(t, httptest.NewRequest(fiber.MethodGet, path, nil))

		assert.Equal(t, fiber.StatusUnauthorized, status, path)
		require.NotNil(t, env.Error)
		assert.Equal(t, envelope.CodeUnauthorized, env.Error.Code)
	}
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestMe(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectQuery("FROM profiles").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(profileColumns))
	s.mock.ExpectQuery("FROM organization_members WHERE user_id").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(0))

	status, env := s.do(t, fiber.MethodGet, "/me", "")

	assert.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, env.Error)
	var me map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &me))
	assert.Equal(t, userID, me["id"])
	assert.Equal(t, "writer@example.org", me["email"])
	assert.Equal(t, true, me["needs_onboarding"])
	assert.Equal(t, false, me["has_organization"])
}

// TestCreateOrganization_Slug walks the "Shadwell Basin!" scenario: the
// slug drops punctuation and the response carries role owner.
func TestCreateOrganization_Slug(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectBegin()
	s.mock.ExpectExec("pg_advisory_xact_lock").
		WithArgs("shadwell-basin").
		WillReturnResult(pgxmock.NewResult("SELECT", 1))
	s.mock.ExpectQuery("SELECT EXISTS").
		WithArgs("shadwell-basin").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	s.mock.ExpectQuery("INSERT INTO organizations").
		WithArgs("Shadwell Basin!", "shadwell-basin").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(orgID, testTime, testTime))
	s.mock.ExpectQuery("INSERT INTO organization_members").
		WithArgs(orgID, userID, "owner").
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(testTime))
	s.mock.ExpectExec("INSERT INTO profiles").
		WithArgs(userID, orgID).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	s.mock.ExpectCommit()

	status, env := s.do(t, fiber.MethodPost, "/organizations", `{"name":"Shadwell Basin!"}`)

	assert.Equal(t, fiber.StatusCreated, status)
	var org map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &org))
	assert.Equal(t, "shadwell-basin", org["slug"])
	assert.Equal(t, "owner", org["role"])
	assert.Contains(t, s.logs.String(), string(security.EventOrganizationCreate))
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestCreateOrganization_MissingName(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, fiber.MethodPost, "/organizations", `{}`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, envelope.CodeValidation, env.Error.Code)
	assert.Equal(t, "Name is required", env.Error.Message)
	assert.Equal(t, "null", string(env.Data))
}

func TestCurrentOrganization_Unset(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectQuery("FROM profiles").
		WithArgs(userID).
		WillReturnRows(pgxmock.NewRows(profileColumns).
			AddRow(userID, (*string)(nil), "member", (*string)(nil), testTime, testTime))

	status, env := s.do(t, fiber.MethodGet, "/organizations/current", "")

	assert.Equal(t, fiber.StatusOK, status)
	assert.Nil(t, env.Error)
	assert.Equal(t, "null", string(env.Data))
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

// TestSwitchOrganization_NotMember verifies 403 and that no profile write happens.
func TestSwitchOrganization_NotMember(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectQuery("FROM organization_members m").
		WithArgs(orgID, userID).
		WillReturnRows(pgxmock.NewRows(orgColumns))

	status, env := s.do(t, fiber.MethodPut, "/organizations/current", `{"organization_id":"`+orgID+`"}`)

	assert.Equal(t, fiber.StatusForbidden, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, envelope.CodeForbidden, env.Error.Code)
	assert.Equal(t, "Not a member of this organization", env.Error.Message)
	assert.Contains(t, s.logs.String(), string(security.EventOrganizationSwitchDeny))
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestSwitchOrganization_MissingID(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, fiber.MethodPut, "/organizations/current", `{}`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "organization_id is required", env.Error.Message)
}

func TestGetProject_NotFound(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectQuery("FROM projects p WHERE p.id = \\$2").
		WithArgs(userID, projID).
		WillReturnRows(pgxmock.NewRows(projectColumns))

	status, env := s.do(t, fiber.MethodGet, "/projects/"+projID, "")

	assert.Equal(t, fiber.StatusNotFound, status)
	assert.Equal(t, envelope.CodeNotFound, env.Error.Code)
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestUpdateProject_NoFields(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, fiber.MethodPatch, "/projects/"+projID, `{}`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "No fields to update", env.Error.Message)
}

func TestUpdateProject_InvalidJSON(t *testing.T) {
	s := newTestServer(t)

	status, env := s.do(t, fiber.MethodPatch, "/projects/"+projID, `{"name":`)

	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, envelope.CodeValidation, env.Error.Code)
}

// TestUpdateDocument_TitleOnly verifies a title-only PATCH leaves content and
// sort_order out of the UPDATE statement.
func TestUpdateDocument_TitleOnly(t *testing.T) {
	s := newTestServer(t)
	s.expectVisible(projID)
	s.mock.ExpectBegin()
	s.mock.ExpectQuery("UPDATE documents SET title = \\$1, updated_at = now\\(\\) WHERE id = \\$2 AND project_id = \\$3").
		WithArgs("Statement of Need", docID1, projID).
		WillReturnRows(pgxmock.NewRows(documentColumn).
			AddRow(docID1, projID, "Statement of Need", "Existing text", 3, testTime, testTime))
	s.mock.ExpectExec("UPDATE projects SET updated_at").
		WithArgs(projID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.mock.ExpectCommit()

	status, env := s.do(t, fiber.MethodPatch, "/projects/"+projID+"/documents/"+docID1, `{"title":"Statement of Need"}`)

	assert.Equal(t, fiber.StatusOK, status)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(env.Data, &doc))
	assert.Equal(t, "Existing text", doc["content"])
	assert.Equal(t, float64(3), doc["sort_order"])
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

// TestReorderDocuments walks the two-document swap: d2 moves to 0, d1 to 1.
func TestReorderDocuments(t *testing.T) {
	s := newTestServer(t)
	s.expectVisible(projID)
	s.mock.ExpectBegin()
	s.mock.ExpectQuery("FOR UPDATE").
		WithArgs(projID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(docID1).AddRow(docID2))
	s.mock.ExpectExec("UPDATE documents SET sort_order").
		WithArgs(0, docID2, projID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.mock.ExpectExec("UPDATE documents SET sort_order").
		WithArgs(1, docID1, projID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.mock.ExpectExec("UPDATE projects SET updated_at").
		WithArgs(projID).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	s.mock.ExpectCommit()

	body := `{"order":["` + docID2 + `","` + docID1 + `"]}`
	status, env := s.do(t, fiber.MethodPost, "/projects/"+projID+"/documents/reorder", body)

	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"success":true}`, string(env.Data))
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestDeleteProject(t *testing.T) {
	s := newTestServer(t)
	s.expectVisible(projID)
	s.mock.ExpectExec("DELETE FROM projects").
		WithArgs(projID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	status, env := s.do(t, fiber.MethodDelete, "/projects/"+projID, "")

	assert.Equal(t, fiber.StatusOK, status)
	assert.JSONEq(t, `{"success":true}`, string(env.Data))
	assert.Contains(t, s.logs.String(), string(security.EventProjectDelete))
	assert.NoError(t, s.mock.ExpectationsWereMet())
}

func TestListProjects_DatabaseError(t *testing.T) {
	s := newTestServer(t)
	s.mock.ExpectQuery("FROM projects p").
		WithArgs(userID).
		WillReturnError(io.ErrUnexpectedEOF)

	status, env := s.do(t, fiber.MethodGet, "/projects", "")

	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.Equal(t, envelope.CodeDatabase, env.Error.Code)
	assert.Contains(t, s.logs.String(), `"level":"ERROR"`)
}

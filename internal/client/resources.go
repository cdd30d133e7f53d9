package client

import (
	"context"
	"net/http"

	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
)

// Me returns the session user and their onboarding state.
func (c *Client) Me(ctx context.Context) envelope.Result[models.Me] {
	return call[models.Me](ctx, c, http.MethodGet, "/me", nil)
}

// ListOrganizations returns the caller's organizations with roles.
func (c *Client) ListOrganizations(ctx context.Context) envelope.Result[[]models.OrganizationWithRole] {
	return call[[]models.OrganizationWithRole](ctx, c, http.MethodGet, "/organizations", nil)
}

// CreateOrganization creates an organization owned by the caller. The server
// also makes it the caller's current organization.
func (c *Client) CreateOrganization(ctx context.Context, name string) envelope.Result[models.OrganizationWithRole] {
	return call[models.OrganizationWithRole](ctx, c, http.MethodPost, "/organizations",
		models.CreateOrganizationInput{Name: name})
}

// CurrentOrganization returns the current organization, or a nil value when
// none is set.
func (c *Client) CurrentOrganization(ctx context.Context) envelope.Result[*models.OrganizationWithRole] {
	return call[*models.OrganizationWithRole](ctx, c, http.MethodGet, "/organizations/current", nil)
}

// SwitchOrganization makes orgID the caller's current organization.
func (c *Client) SwitchOrganization(ctx context.Context, orgID string) envelope.Result[models.OrganizationWithRole] {
	return call[models.OrganizationWithRole](ctx, c, http.MethodPut, "/organizations/current",
		models.SwitchOrganizationInput{OrganizationID: orgID})
}

// ListProjects returns visible projects with document counts.
func (c *Client) ListProjects(ctx context.Context) envelope.Result[[]models.ProjectWithCount] {
	return call[[]models.ProjectWithCount](ctx, c, http.MethodGet, "/projects", nil)
}

// CreateProject creates a draft project.
func (c *Client) CreateProject(ctx context.Context, in models.CreateProjectInput) envelope.Result[models.Project] {
	return call[models.Project](ctx, c, http.MethodPost, "/projects", in)
}

// GetProject returns a project with its documents.
func (c *Client) GetProject(ctx context.Context, projectID string) envelope.Result[models.ProjectWithDocuments] {
	return call[models.ProjectWithDocuments](ctx, c, http.MethodGet, path("projects", projectID), nil)
}

// UpdateProject sends only the fields set in u.
func (c *Client) UpdateProject(ctx context.Context, projectID string, u models.ProjectUpdate) envelope.Result[models.Project] {
	return call[models.Project](ctx, c, http.MethodPatch, path("projects", projectID), u)
}

// DeleteProject removes a project and its documents.
func (c *Client) DeleteProject(ctx context.Context, projectID string) envelope.Result[models.SuccessResult] {
	return call[models.SuccessResult](ctx, c, http.MethodDelete, path("projects", projectID), nil)
}

// ListDocuments returns a project's documents in sort order.
func (c *Client) ListDocuments(ctx context.Context, projectID string) envelope.Result[[]models.Document] {
	return call[[]models.Document](ctx, c, http.MethodGet, path("projects", projectID, "documents"), nil)
}

// CreateDocument adds a document to a project.
func (c *Client) CreateDocument(ctx context.Context, projectID string, in models.CreateDocumentInput) envelope.Result[models.Document] {
	return call[models.Document](ctx, c, http.MethodPost, path("projects", projectID, "documents"), in)
}

// GetDocument returns one document.
func (c *Client) GetDocument(ctx context.Context, projectID, docID string) envelope.Result[models.Document] {
	return call[models.Document](ctx, c, http.MethodGet, path("projects", projectID, "documents", docID), nil)
}

// UpdateDocument sends only the fields set in u.
func (c *Client) UpdateDocument(ctx context.Context, projectID, docID string, u models.DocumentUpdate) envelope.Result[models.Document] {
	return call[models.Document](ctx, c, http.MethodPatch, path("projects", projectID, "documents", docID), u)
}

// DeleteDocument removes one document.
func (c *Client) DeleteDocument(ctx context.Context, projectID, docID string) envelope.Result[models.SuccessResult] {
	return call[models.SuccessResult](ctx, c, http.MethodDelete, path("projects", projectID, "documents", docID), nil)
}

// ReorderDocuments sets the order of every document of the project.
func (c *Client) ReorderDocuments(ctx context.Context, projectID string, order []string) envelope.Result[models.SuccessResult] {
	return call[models.SuccessResult](ctx, c, http.MethodPost, path("projects", projectID, "documents", "reorder"),
		models.ReorderInput{Order: order})
}

// ListKnowledgeFiles returns the current organization's knowledge files.
func (c *Client) ListKnowledgeFiles(ctx context.Context) envelope.Result[[]models.KnowledgeFile] {
	return call[[]models.KnowledgeFile](ctx, c, http.MethodGet, "/knowledge-files", nil)
}

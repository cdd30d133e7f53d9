package editor

import (
	"context"
	"slices"

	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
	"github.com/mattlim-fl/ai-grant-applications/internal/store"
)

// ProjectsAPI is the part of the remote client a ProjectList needs.
type ProjectsAPI interface {
	ListProjects(ctx context.Context) envelope.Result[[]models.ProjectWithCount]
	CreateProject(ctx context.Context, in models.CreateProjectInput) envelope.Result[models.Project]
	UpdateProject(ctx context.Context, projectID string, u models.ProjectUpdate) envelope.Result[models.Project]
	DeleteProject(ctx context.Context, projectID string) envelope.Result[models.SuccessResult]
}

// ProjectList is the dashboard's list of projects. Its writes wait for the
// server and then patch the cache.
type ProjectList struct {
	api   ProjectsAPI
	store *store.Store[[]models.ProjectWithCount]
}

// NewProjectList creates an empty list.
func NewProjectList(api ProjectsAPI) *ProjectList {
	return &ProjectList{
		api:   api,
		store: store.New(api.ListProjects),
	}
}

// Store exposes the read side of the list cache.
func (l *ProjectList) Store() *store.Store[[]models.ProjectWithCount] { return l.store }

// Load fetches the list.
func (l *ProjectList) Load(ctx context.Context) error {
	if err := l.store.Refetch(ctx); err != nil {
		return err
	}
	return nil
}

// Projects returns the cached rows.
func (l *ProjectList) Projects() []models.ProjectWithCount {
	v, _ := l.store.Value()
	return slices.Clone(v)
}

// Create makes a project and refetches the list so document counts are
// right.
func (l *ProjectList) Create(ctx context.Context, in models.CreateProjectInput) (models.Project, error) {
	res := l.api.CreateProject(ctx, in)
	if !res.OK() {
		return models.Project{}, res.Err
	}
	if err := l.store.Refetch(ctx); err != nil {
		return res.Value, err
	}
	return res.Value, nil
}

// Update writes the supplied fields and merges the server's project into
// the cached row.
func (l *ProjectList) Update(ctx context.Context, projectID string, u models.ProjectUpdate) (models.Project, error) {
	res := l.api.UpdateProject(ctx, projectID, u)
	if !res.OK() {
		return models.Project{}, res.Err
	}
	l.store.Update(func(rows []models.ProjectWithCount) []models.ProjectWithCount {
		rows = slices.Clone(rows)
		for i := range rows {
			if rows[i].ID == projectID {
				rows[i].Project = res.Value
			}
		}
		return rows
	})
	return res.Value, nil
}

// Delete removes a project and drops its row.
func (l *ProjectList) Delete(ctx context.Context, projectID string) error {
	res := l.api.DeleteProject(ctx, projectID)
	if !res.OK() {
		return res.Err
	}
	l.store.Update(func(rows []models.ProjectWithCount) []models.ProjectWithCount {
		return slices.DeleteFunc(slices.Clone(rows), func(p models.ProjectWithCount) bool {
			return p.ID == projectID
		})
	})
	return nil
}

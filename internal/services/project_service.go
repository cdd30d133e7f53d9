package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/mattlim-fl/ai-grant-applications/internal/database"
	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
	"github.com/mattlim-fl/ai-grant-applications/internal/repository"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
)

// Messages shared with the document service.
const (
	MsgProjectNotFound = "Project not found"
	MsgNoFields        = "No fields to update"
)

// ProjectService manages grant application projects. Every read and write is
// limited to projects the caller can see; anything else is NOT_FOUND.
type ProjectService struct {
	projects  *repository.ProjectRepository
	documents *repository.DocumentRepository
	validator *security.ValidationService
	config    *security.SecurityConfig
}

// NewProjectService creates a ProjectService backed by database.DB.
func NewProjectService(validator *security.ValidationService, config *security.SecurityConfig) *ProjectService {
	return &ProjectService{
		projects:  repository.NewProjectRepository(),
		documents: repository.NewDocumentRepository(),
		validator: validator,
		config:    config,
	}
}

// List returns the caller's visible projects, most recently updated first.
func (s *ProjectService) List(ctx context.Context, userID string) ([]models.ProjectWithCount, error) {
	projects, err := s.projects.ListVisible(ctx, userID)
	if err != nil {
		return nil, envelope.Database(err)
	}
	return projects, nil
}

// Create inserts a draft project owned by userID. Each entry of in.Sections
// becomes a document titled by SectionTitle, in the given order, in the same
// transaction as the project.
//
// Parameters:
//   - ctx: Context for cancellation and timeout control
//   - userID: Caller, recorded as created_by
//   - in: Name is required; Funder is trimmed and blank means none
//
// Returns:
//   - *models.Project: The created project
//   - error: VALIDATION_ERROR or DATABASE_ERROR
func (s *ProjectService) Create(ctx context.Context, userID string, in models.CreateProjectInput) (*models.Project, error) {
	if err := s.validator.ValidateName(in.Name); err != nil {
		return nil, envelope.Validation(err.Error())
	}
	funder, err := s.optionalFunder(in.Funder)
	if err != nil {
		return nil, err
	}
	deadline, err := s.optionalDeadline(in.Deadline)
	if err != nil {
		return nil, err
	}
	if len(in.Sections) > s.config.MaxSections {
		return nil, envelope.Validation("Too many sections")
	}

	project := models.Project{
		Name:      s.validator.SanitizeString(in.Name),
		Funder:    funder,
		Deadline:  deadline,
		Status:    models.StatusDraft,
		CreatedBy: userID,
	}

	err = database.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.projects.WithTx(tx).Create(ctx, &project); err != nil {
			return err
		}
		docs := s.documents.WithTx(tx)
		for i, section := range in.Sections {
			position := i
			doc := models.Document{ProjectID: project.ID, Title: SectionTitle(section)}
			if err := docs.Create(ctx, &doc, &position); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, envelope.Database(err)
	}

	return &project, nil
}

// Get returns a visible project with its documents in sort order.
func (s *ProjectService) Get(ctx context.Context, userID, projectID string) (*models.ProjectWithDocuments, error) {
	project, err := s.visible(ctx, userID, projectID)
	if err != nil {
		return nil, err
	}

	docs, err := s.documents.ListByProject(ctx, projectID)
	if err != nil {
		return nil, envelope.Database(err)
	}
	return &models.ProjectWithDocuments{Project: *project, Documents: docs}, nil
}

// Update writes the fields supplied in u. Null or empty funder and deadline
// clear the stored value.
func (s *ProjectService) Update(ctx context.Context, userID, projectID string, u models.ProjectUpdate) (*models.Project, error) {
	if u.IsEmpty() {
		return nil, envelope.Validation(MsgNoFields)
	}
	u, err := s.normalizeUpdate(u)
	if err != nil {
		return nil, err
	}

	if _, err := s.visible(ctx, userID, projectID); err != nil {
		return nil, err
	}

	project, err := s.projects.Update(ctx, projectID, u)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, envelope.NotFound(MsgProjectNotFound)
	}
	if err != nil {
		return nil, envelope.Database(err)
	}
	return project, nil
}

// Delete removes a visible project and, by cascade, its documents.
func (s *ProjectService) Delete(ctx context.Context, userID, projectID string) error {
	if _, err := s.visible(ctx, userID, projectID); err != nil {
		return err
	}
	if err := s.projects.Delete(ctx, projectID); err != nil {
		return envelope.Database(err)
	}
	return nil
}

// visible loads the project or returns NOT_FOUND. Malformed ids are treated
// like missing rows.
func (s *ProjectService) visible(ctx context.Context, userID, projectID string) (*models.Project, error) {
	if s.validator.ValidateUUID("Project id", projectID) != nil {
		return nil, envelope.NotFound(MsgProjectNotFound)
	}
	project, err := s.projects.GetVisible(ctx, userID, projectID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, envelope.NotFound(MsgProjectNotFound)
	}
	if err != nil {
		return nil, envelope.Database(err)
	}
	return project, nil
}

func (s *ProjectService) normalizeUpdate(u models.ProjectUpdate) (models.ProjectUpdate, error) {
	if u.Name.Set {
		if u.Name.Null {
			return u, envelope.Validation("Name is required")
		}
		if err := s.validator.ValidateName(u.Name.Value); err != nil {
			return u, envelope.Validation(err.Error())
		}
		u.Name.Value = s.validator.SanitizeString(u.Name.Value)
	}

	if u.Funder.Set && !u.Funder.Null {
		funder, err := s.optionalFunder(&u.Funder.Value)
		if err != nil {
			return u, err
		}
		if funder == nil {
			u.Funder = models.Null[string]()
		} else {
			u.Funder.Value = *funder
		}
	}

	if u.Deadline.Set && !u.Deadline.Null {
		deadline, err := s.optionalDeadline(&u.Deadline.Value)
		if err != nil {
			return u, err
		}
		if deadline == nil {
			u.Deadline = models.Null[string]()
		} else {
			u.Deadline.Value = *deadline
		}
	}

	if u.Status.Set {
		if u.Status.Null {
			return u, envelope.Validation("Status is required")
		}
		if err := s.validator.ValidateProjectStatus(u.Status.Value, models.ProjectStatuses); err != nil {
			return u, envelope.Validation(err.Error())
		}
	}

	return u, nil
}

// optionalFunder trims a funder name; blank means none.
func (s *ProjectService) optionalFunder(funder *string) (*string, error) {
	if funder == nil {
		return nil, nil
	}
	trimmed := s.validator.SanitizeString(*funder)
	if trimmed == "" {
		return nil, nil
	}
	if err := s.validator.ValidateFunder(trimmed); err != nil {
		return nil, envelope.Validation(err.Error())
	}
	return &trimmed, nil
}

// optionalDeadline validates a YYYY-MM-DD deadline; blank means none.
func (s *ProjectService) optionalDeadline(deadline *string) (*string, error) {
	if deadline == nil {
		return nil, nil
	}
	trimmed := strings.TrimSpace(*deadline)
	if trimmed == "" {
		return nil, nil
	}
	if err := s.validator.ValidateDate("Deadline", trimmed); err != nil {
		return nil, envelope.Validation(err.Error())
	}
	return &trimmed, nil
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/mattlim-fl/ai-grant-applications/internal/database"
	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
	"github.com/mattlim-fl/ai-grant-applications/internal/repository"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
)

// MsgDocumentNotFound is returned for missing documents and for documents
// that belong to another project.
const MsgDocumentNotFound = "Document not found"

// DocumentService manages the documents (sections) of a project. The parent
// project must be visible to the caller, and every write bumps the project's
// updated_at.
type DocumentService struct {
	projects  *ProjectService
	documents *repository.DocumentRepository
	validator *security.ValidationService
}

// NewDocumentService creates a DocumentService that checks project access
// through projects.
func NewDocumentService(projects *ProjectService, validator *security.ValidationService) *DocumentService {
	return &DocumentService{
		projects:  projects,
		documents: repository.NewDocumentRepository(),
		validator: validator,
	}
}

// List returns the project's documents ordered by sort_order.
func (s *DocumentService) List(ctx context.Context, userID, projectID string) ([]models.Document, error) {
	if _, err := s.projects.visible(ctx, userID, projectID); err != nil {
		return nil, err
	}
	docs, err := s.documents.ListByProject(ctx, projectID)
	if err != nil {
		return nil, envelope.Database(err)
	}
	return docs, nil
}

// Create adds a document to the project. Content defaults to empty and a
// missing sort_order appends after the last document.
func (s *DocumentService) Create(ctx context.Context, userID, projectID string, in models.CreateDocumentInput) (*models.Document, error) {
	if err := s.validator.ValidateTitle(in.Title); err != nil {
		return nil, envelope.Validation(err.Error())
	}
	doc := models.Document{ProjectID: projectID, Title: s.validator.SanitizeString(in.Title)}
	if in.Content != nil {
		if err := s.validator.ValidateContent(*in.Content); err != nil {
			return nil, envelope.Validation(err.Error())
		}
		doc.Content = *in.Content
	}
	if in.SortOrder != nil {
		if err := s.validator.ValidateSortOrder(*in.SortOrder); err != nil {
			return nil, envelope.Validation(err.Error())
		}
	}

	if _, err := s.projects.visible(ctx, userID, projectID); err != nil {
		return nil, err
	}

	err := database.WithTx(ctx, func(tx pgx.Tx) error {
		if err := s.projects.projects.WithTx(tx).Lock(ctx, projectID); err != nil {
			return err
		}
		if err := s.documents.WithTx(tx).Create(ctx, &doc, in.SortOrder); err != nil {
			return err
		}
		return s.projects.projects.WithTx(tx).Touch(ctx, projectID)
	})
	if err != nil {
		return nil, envelope.Database(err)
	}
	return &doc, nil
}

// Get returns one document of a visible project.
func (s *DocumentService) Get(ctx context.Context, userID, projectID, docID string) (*models.Document, error) {
	if _, err := s.projects.visible(ctx, userID, projectID); err != nil {
		return nil, err
	}
	if s.validator.ValidateUUID("Document id", docID) != nil {
		return nil, envelope.NotFound(MsgDocumentNotFound)
	}

	doc, err := s.documents.Get(ctx, projectID, docID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, envelope.NotFound(MsgDocumentNotFound)
	}
	if err != nil {
		return nil, envelope.Database(err)
	}
	return doc, nil
}

// Update writes the supplied fields of a document. A null content is stored
// as the empty string; null title or sort_order are rejected.
func (s *DocumentService) Update(ctx context.Context, userID, projectID, docID string, u models.DocumentUpdate) (*models.Document, error) {
	if u.IsEmpty() {
		return nil, envelope.Validation(MsgNoFields)
	}
	u, err := s.normalizeUpdate(u)
	if err != nil {
		return nil, err
	}

	if _, err := s.projects.visible(ctx, userID, projectID); err != nil {
		return nil, err
	}
	if s.validator.ValidateUUID("Document id", docID) != nil {
		return nil, envelope.NotFound(MsgDocumentNotFound)
	}

	var doc *models.Document
	err = database.WithTx(ctx, func(tx pgx.Tx) error {
		updated, err := s.documents.WithTx(tx).Update(ctx, projectID, docID, u)
		if errors.Is(err, repository.ErrNotFound) {
			return envelope.NotFound(MsgDocumentNotFound)
		}
		if err != nil {
			return err
		}
		doc = updated
		return s.projects.projects.WithTx(tx).Touch(ctx, projectID)
	})
	if err != nil {
		return nil, envelope.As(err)
	}
	return doc, nil
}

// Delete removes one document of a visible project.
func (s *DocumentService) Delete(ctx context.Context, userID, projectID, docID string) error {
	if _, err := s.projects.visible(ctx, userID, projectID); err != nil {
		return err
	}
	if s.validator.ValidateUUID("Document id", docID) != nil {
		return envelope.NotFound(MsgDocumentNotFound)
	}

	err := database.WithTx(ctx, func(tx pgx.Tx) error {
		err := s.documents.WithTx(tx).Delete(ctx, projectID, docID)
		if errors.Is(err, repository.ErrNotFound) {
			return envelope.NotFound(MsgDocumentNotFound)
		}
		if err != nil {
			return err
		}
		return s.projects.projects.WithTx(tx).Touch(ctx, projectID)
	})
	if err != nil {
		return envelope.As(err)
	}
	return nil
}

// Reorder assigns sort_order 0..n-1 following order.
//
// order must list every document of the project exactly once. The rows are
// locked for the duration of the transaction and the (project_id, sort_order)
// uniqueness check runs at commit, so concurrent reorders serialize and a
// failed reorder leaves the previous order intact.
//
// Returns:
//   - error: VALIDATION_ERROR when order is not a permutation of the
//     project's documents, NOT_FOUND for an invisible project, DATABASE_ERROR otherwise
func (s *DocumentService) Reorder(ctx context.Context, userID, projectID string, order []string) error {
	if err := s.validator.ValidateOrder(order); err != nil {
		return envelope.Validation(err.Error())
	}
	if _, err := s.projects.visible(ctx, userID, projectID); err != nil {
		return err
	}

	err := database.WithTx(ctx, func(tx pgx.Tx) error {
		docs := s.documents.WithTx(tx)
		current, err := docs.LockIDs(ctx, projectID)
		if err != nil {
			return err
		}
		if err := samePermutation(current, order); err != nil {
			return err
		}
		for position, id := range order {
			if err := docs.SetSortOrder(ctx, projectID, id, position); err != nil {
				return err
			}
		}
		return s.projects.projects.WithTx(tx).Touch(ctx, projectID)
	})
	if err != nil {
		return envelope.As(err)
	}
	return nil
}

func (s *DocumentService) normalizeUpdate(u models.DocumentUpdate) (models.DocumentUpdate, error) {
	if u.Title.Set {
		if u.Title.Null {
			return u, envelope.Validation("Title is required")
		}
		if err := s.validator.ValidateTitle(u.Title.Value); err != nil {
			return u, envelope.Validation(err.Error())
		}
		u.Title.Value = s.validator.SanitizeString(u.Title.Value)
	}
	if u.Content.Set {
		if u.Content.Null {
			u.Content = models.Some("")
		}
		if err := s.validator.ValidateContent(u.Content.Value); err != nil {
			return u, envelope.Validation(err.Error())
		}
	}
	if u.SortOrder.Set {
		if u.SortOrder.Null {
			return u, envelope.Validation("sort_order must be a number")
		}
		if err := s.validator.ValidateSortOrder(u.SortOrder.Value); err != nil {
			return u, envelope.Validation(err.Error())
		}
	}
	return u, nil
}

// samePermutation checks order names exactly the ids in current. order is
// already known to be duplicate free.
func samePermutation(current, order []string) error {
	if len(current) != len(order) {
		return envelope.Validation(fmt.Sprintf(
			"Order must list all %d documents of the project, got %d", len(current), len(order)))
	}
	known := make(map[string]struct{}, len(current))
	for _, id := range current {
		known[id] = struct{}{}
	}
	for _, id := range order {
		if _, ok := known[id]; !ok {
			return envelope.Validation(fmt.Sprintf("Document %s is not part of this project", id))
		}
	}
	return nil
}

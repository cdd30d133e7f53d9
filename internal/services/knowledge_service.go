package services

import (
	"context"

	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
	"github.com/mattlim-fl/ai-grant-applications/internal/repository"
)

// KnowledgeService lists knowledge base files of the caller's current
// organization. Upload and ingestion happen elsewhere.
type KnowledgeService struct {
	orgs  *OrganizationService
	files *repository.KnowledgeFileRepository
}

// NewKnowledgeService creates a KnowledgeService scoped through orgs.
func NewKnowledgeService(orgs *OrganizationService) *KnowledgeService {
	return &KnowledgeService{
		orgs:  orgs,
		files: repository.NewKnowledgeFileRepository(),
	}
}

// List returns the current organization's files, newest first, or an empty
// list when the caller has no current organization.
func (s *KnowledgeService) List(ctx context.Context, userID string) ([]models.KnowledgeFile, error) {
	org, err := s.orgs.Current(ctx, userID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return []models.KnowledgeFile{}, nil
	}

	files, err := s.files.ListByOrganization(ctx, org.ID)
	if err != nil {
		return nil, envelope.Database(err)
	}
	return files, nil
}

package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mattlim-fl/ai-grant-applications/internal/middleware"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
	"github.com/mattlim-fl/ai-grant-applications/internal/services"
)

// KnowledgeHandler serves the read-only knowledge file list.
type KnowledgeHandler struct {
	base
	files *services.KnowledgeService
}

// NewKnowledgeHandler creates a KnowledgeHandler.
func NewKnowledgeHandler(files *services.KnowledgeService, logger *security.Logger, config *security.SecurityConfig) *KnowledgeHandler {
	return &KnowledgeHandler{base: base{logger: logger, config: config}, files: files}
}

// List returns the current organization's knowledge files, newest first.
//
// Route: GET /knowledge-files
func (h *KnowledgeHandler) List(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	files, err := h.files.List(ctx, middleware.UserID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, files)
}

// Options carries the shared dependencies of RegisterRoutes.
type Options struct {
	JWTSecret []byte
	Logger    *security.Logger
	Config    *security.SecurityConfig
}

// RegisterRoutes mounts the API on router. Every route requires a session.
// Writes share one per-user bucket; organization creation also draws from a
// stricter one. The returned function stops the limiters' sweepers.
func RegisterRoutes(router fiber.Router, opts Options) (stop func()) {
	validator := security.NewValidationService(opts.Config)
	orgService := services.NewOrganizationService(validator)
	projectService := services.NewProjectService(validator, opts.Config)

	orgs := NewOrganizationHandler(orgService, opts.Logger, opts.Config)
	projects := NewProjectHandler(projectService, opts.Logger, opts.Config)
	documents := NewDocumentHandler(services.NewDocumentService(projectService, validator), opts.Logger, opts.Config)
	knowledge := NewKnowledgeHandler(services.NewKnowledgeService(orgService), opts.Logger, opts.Config)

	sm := middleware.NewSecurityMiddleware(opts.Logger, opts.Config)
	writeLimiter := sm.WriteLimiter()
	orgLimiter := sm.OrgCreateLimiter()

	api := router.Group("",
		middleware.AuthRequired(opts.JWTSecret, opts.Config, opts.Logger),
		sm.RateLimit(writeLimiter, "write"),
	)

	api.Get("/me", orgs.Me)

	api.Get("/organizations", orgs.List)
	api.Post("/organizations", sm.RateLimit(orgLimiter, "organization_create"), orgs.Create)
	api.Get("/organizations/current", orgs.Current)
	api.Put("/organizations/current", orgs.Switch)

	api.Get("/projects", projects.List)
	api.Post("/projects", projects.Create)
	api.Get("/projects/:id", projects.Get)
	api.Patch("/projects/:id", projects.Update)
	api.Delete("/projects/:id", projects.Delete)

	api.Get("/projects/:id/documents", documents.List)
	api.Post("/projects/:id/documents", documents.Create)
	api.Post("/projects/:id/documents/reorder", documents.Reorder)
	api.Get("/projects/:id/documents/:docId", documents.Get)
	api.Patch("/projects/:id/documents/:docId", documents.Update)
	api.Delete("/projects/:id/documents/:docId", documents.Delete)

	api.Get("/knowledge-files", knowledge.List)

	return func() {
		writeLimiter.Stop()
		orgLimiter.Stop()
	}
}

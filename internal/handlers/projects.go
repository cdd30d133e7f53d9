package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mattlim-fl/ai-grant-applications/internal/middleware"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
	"github.com/mattlim-fl/ai-grant-applications/internal/services"
)

// ProjectHandler serves /projects and /projects/:id.
type ProjectHandler struct {
	base
	projects *services.ProjectService
}

// NewProjectHandler creates a ProjectHandler.
func NewProjectHandler(projects *services.ProjectService, logger *security.Logger, config *security.SecurityConfig) *ProjectHandler {
	return &ProjectHandler{base: base{logger: logger, config: config}, projects: projects}
}

// List returns visible projects with their document counts.
//
// Route: GET /projects
func (h *ProjectHandler) List(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	projects, err := h.projects.List(ctx, middleware.UserID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, projects)
}

// Create starts a new draft project, optionally with default sections.
//
// Route: POST /projects {name, funder?, deadline?, sections?}
func (h *ProjectHandler) Create(c *fiber.Ctx) error {
	var in models.CreateProjectInput
	if err := decode(c, &in); err != nil {
		return h.respondError(c, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	project, err := h.projects.Create(ctx, middleware.UserID(c), in)
	if err != nil {
		return h.respondError(c, err)
	}

	h.event(c, security.EventProjectCreate, map[string]interface{}{
		"project_id": project.ID,
		"sections":   len(in.Sections),
	})
	return ok(c, fiber.StatusCreated, project)
}

// Get returns a project with its documents in sort order.
//
// Route: GET /projects/:id
func (h *ProjectHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	project, err := h.projects.Get(ctx, middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, project)
}

// Update writes the supplied project fields.
//
// Route: PATCH /projects/:id {name?, funder?, deadline?, status?}
func (h *ProjectHandler) Update(c *fiber.Ctx) error {
	var u models.ProjectUpdate
	if err := decode(c, &u); err != nil {
		return h.respondError(c, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	project, err := h.projects.Update(ctx, middleware.UserID(c), c.Params("id"), u)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, project)
}

// Delete removes a project and its documents.
//
// Route: DELETE /projects/:id
func (h *ProjectHandler) Delete(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	projectID := c.Params("id")
	if err := h.projects.Delete(ctx, middleware.UserID(c), projectID); err != nil {
		return h.respondError(c, err)
	}

	h.event(c, security.EventProjectDelete, map[string]interface{}{"project_id": projectID})
	return ok(c, fiber.StatusOK, models.SuccessResult{Success: true})
}

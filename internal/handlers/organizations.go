package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mattlim-fl/ai-grant-applications/internal/envelope"
	"github.com/mattlim-fl/ai-grant-applications/internal/middleware"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
	"github.com/mattlim-fl/ai-grant-applications/internal/services"
)

// OrganizationHandler serves /me and /organizations.
type OrganizationHandler struct {
	base
	orgs *services.OrganizationService
}

// NewOrganizationHandler creates an OrganizationHandler.
func NewOrganizationHandler(orgs *services.OrganizationService, logger *security.Logger, config *security.SecurityConfig) *OrganizationHandler {
	return &OrganizationHandler{base: base{logger: logger, config: config}, orgs: orgs}
}

// Me returns the session user, their profile and whether they still need to
// create or join an organization.
//
// Route: GET /me
func (h *OrganizationHandler) Me(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	me, err := h.orgs.Me(ctx, middleware.UserID(c), middleware.UserEmail(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, me)
}

// List returns the caller's organizations with their role in each.
//
// Route: GET /organizations
func (h *OrganizationHandler) List(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	orgs, err := h.orgs.List(ctx, middleware.UserID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, orgs)
}

// Create makes a new organization owned by the caller and makes it current.
//
// Route: POST /organizations {name}
// Responds 201 with the organization and role "owner".
func (h *OrganizationHandler) Create(c *fiber.Ctx) error {
	var in models.CreateOrganizationInput
	if err := decode(c, &in); err != nil {
		return h.respondError(c, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	org, err := h.orgs.Create(ctx, middleware.UserID(c), in.Name)
	if err != nil {
		return h.respondError(c, err)
	}

	h.event(c, security.EventOrganizationCreate, map[string]interface{}{
		"organization_id": org.ID,
		"slug":            org.Slug,
	})
	return ok(c, fiber.StatusCreated, org)
}

// Current returns the caller's current organization, or null data when none
// is set. It never changes the pointer.
//
// Route: GET /organizations/current
func (h *OrganizationHandler) Current(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	org, err := h.orgs.Current(ctx, middleware.UserID(c))
	if err != nil {
		return h.respondError(c, err)
	}
	if org == nil {
		return ok(c, fiber.StatusOK, nil)
	}
	return ok(c, fiber.StatusOK, org)
}

// Switch changes the caller's current organization.
//
// Route: PUT /organizations/current {organization_id}
// Responds 403 when the caller is not a member; the pointer is then unchanged.
func (h *OrganizationHandler) Switch(c *fiber.Ctx) error {
	var in models.SwitchOrganizationInput
	if err := decode(c, &in); err != nil {
		return h.respondError(c, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	org, err := h.orgs.Switch(ctx, middleware.UserID(c), in.OrganizationID)
	if envelope.IsCode(err, envelope.CodeForbidden) {
		h.event(c, security.EventOrganizationSwitchDeny, map[string]interface{}{
			"organization_id": in.OrganizationID,
		})
	}
	if err != nil {
		return h.respondError(c, err)
	}

	h.event(c, security.EventOrganizationSwitch, map[string]interface{}{
		"organization_id": org.ID,
	})
	return ok(c, fiber.StatusOK, org)
}

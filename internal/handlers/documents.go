package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/mattlim-fl/ai-grant-applications/internal/middleware"
	"github.com/mattlim-fl/ai-grant-applications/internal/models"
	"github.com/mattlim-fl/ai-grant-applications/internal/security"
	"github.com/mattlim-fl/ai-grant-applications/internal/services"
)

// DocumentHandler serves /projects/:id/documents and its children.
type DocumentHandler struct {
	base
	documents *services.DocumentService
}

// NewDocumentHandler creates a DocumentHandler.
func NewDocumentHandler(documents *services.DocumentService, logger *security.Logger, config *security.SecurityConfig) *DocumentHandler {
	return &DocumentHandler{base: base{logger: logger, config: config}, documents: documents}
}

// List returns the project's documents in sort order.
//
// Route: GET /projects/:id/documents
func (h *DocumentHandler) List(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	docs, err := h.documents.List(ctx, middleware.UserID(c), c.Params("id"))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, docs)
}

// Create adds a document; without sort_order it is appended.
//
// Route: POST /projects/:id/documents {title, content?, sort_order?}
func (h *DocumentHandler) Create(c *fiber.Ctx) error {
	var in models.CreateDocumentInput
	if err := decode(c, &in); err != nil {
		return h.respondError(c, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	doc, err := h.documents.Create(ctx, middleware.UserID(c), c.Params("id"), in)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusCreated, doc)
}

// Get returns one document.
//
// Route: GET /projects/:id/documents/:docId
func (h *DocumentHandler) Get(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	doc, err := h.documents.Get(ctx, middleware.UserID(c), c.Params("id"), c.Params("docId"))
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, doc)
}

// Update writes the supplied document fields. Absent fields are untouched.
//
// Route: PATCH /projects/:id/documents/:docId {title?, content?, sort_order?}
func (h *DocumentHandler) Update(c *fiber.Ctx) error {
	var u models.DocumentUpdate
	if err := decode(c, &u); err != nil {
		return h.respondError(c, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	doc, err := h.documents.Update(ctx, middleware.UserID(c), c.Params("id"), c.Params("docId"), u)
	if err != nil {
		return h.respondError(c, err)
	}
	return ok(c, fiber.StatusOK, doc)
}

// Delete removes one document.
//
// Route: DELETE /projects/:id/documents/:docId
func (h *DocumentHandler) Delete(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()

	projectID, docID := c.Params("id"), c.Params("docId")
	if err := h.documents.Delete(ctx, middleware.UserID(c), projectID, docID); err != nil {
		return h.respondError(c, err)
	}

	h.event(c, security.EventDocumentDelete, map[string]interface{}{
		"project_id":  projectID,
		"document_id": docID,
	})
	return ok(c, fiber.StatusOK, models.SuccessResult{Success: true})
}

// Reorder rewrites every document's sort_order in one transaction.
//
// Route: POST /projects/:id/documents/reorder {order: [ids]}
func (h *DocumentHandler) Reorder(c *fiber.Ctx) error {
	var in models.ReorderInput
	if err := decode(c, &in); err != nil {
		return h.respondError(c, err)
	}

	ctx, cancel := h.ctx(c)
	defer cancel()

	projectID := c.Params("id")
	if err := h.documents.Reorder(ctx, middleware.UserID(c), projectID, in.Order); err != nil {
		return h.respondError(c, err)
	}

	h.event(c, security.EventDocumentReorder, map[string]interface{}{
		"project_id": projectID,
		"documents":  len(in.Order),
	})
	return ok(c, fiber.StatusOK, models.SuccessResult{Success: true})
}

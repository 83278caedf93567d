package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sgpti/sgpti-api/internal/dto"
	"github.com/sgpti/sgpti-api/internal/service"
	"github.com/sgpti/sgpti-api/internal/utils"
)

// DocumentHandler serves deliverable metadata.
type DocumentHandler struct {
	service service.DocumentService
	logger  zerolog.Logger
}

// NewDocumentHandler constructs a document handler.
func NewDocumentHandler(service service.DocumentService, logger zerolog.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: service,
		logger:  logger.With().Str("component", "document_handler").Logger(),
	}
}

// RegisterProjectRoutes binds the routes nested under /projects.
func (h *DocumentHandler) RegisterProjectRoutes(projects fiber.Router) {
	projects.Get("/:uuid/documents", h.list)
	projects.Post("/:uuid/documents", h.register)
}

// Register binds the /documents routes.
func (h *DocumentHandler) Register(router fiber.Router) {
	router.Get("/stages", h.stages)
}

func (h *DocumentHandler) list(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	documents, err := h.service.List(c.UserContext(), actor, c.Params("uuid"), c.QueryBool("current", false))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list documents")
	}
	return utils.SendSuccess(c, "documents retrieved", documents)
}

func (h *DocumentHandler) register(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	var payload dto.DocumentRegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	document, err := h.service.Register(c.UserContext(), actor, c.Params("uuid"), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to register document")
	}
	return utils.Created(c, document, "document registered")
}

func (h *DocumentHandler) stages(c *fiber.Ctx) error {
	stages, err := h.service.Stages(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "failed to load stages")
	}
	return utils.SendSuccess(c, "stages retrieved", stages)
}

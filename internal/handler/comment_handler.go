package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sgpti/sgpti-api/internal/dto"
	"github.com/sgpti/sgpti-api/internal/service"
	"github.com/sgpti/sgpti-api/internal/utils"
)

// CommentHandler serves project discussion.
type CommentHandler struct {
	service service.CommentService
	logger  zerolog.Logger
	limiter fiber.Handler
}

// NewCommentHandler constructs a comment handler. A nil limiter disables
// throttling of new comments.
func NewCommentHandler(service service.CommentService, logger zerolog.Logger, limiter fiber.Handler) *CommentHandler {
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}
	return &CommentHandler{
		service: service,
		logger:  logger.With().Str("component", "comment_handler").Logger(),
		limiter: limiter,
	}
}

// RegisterProjectRoutes binds the routes nested under /projects.
func (h *CommentHandler) RegisterProjectRoutes(projects fiber.Router) {
	projects.Get("/:uuid/comments", h.list)
	projects.Post("/:uuid/comments", h.limiter, h.create)
}

// Register binds the /comments routes.
func (h *CommentHandler) Register(router fiber.Router) {
	router.Delete("/:id", h.delete)
}

func (h *CommentHandler) list(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	comments, err := h.service.List(c.UserContext(), actor, c.Params("uuid"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to list comments")
	}
	return utils.SendSuccess(c, "comments retrieved", comments)
}

func (h *CommentHandler) create(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	var payload dto.CommentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	comment, err := h.service.Create(c.UserContext(), actor, c.Params("uuid"), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create comment")
	}
	return utils.Created(c, comment, "comment created")
}

func (h *CommentHandler) delete(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}
	id, ok := parseUintParam(c, "id")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid comment id")
	}

	if err := h.service.Delete(c.UserContext(), actor, id); err != nil {
		return respondError(c, h.logger, err, "failed to delete comment")
	}
	return utils.SendSuccess(c, "comment deleted", nil)
}

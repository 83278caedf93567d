package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/sgpti/sgpti-api/internal/dto"
	"github.com/sgpti/sgpti-api/internal/middleware"
	"github.com/sgpti/sgpti-api/internal/service"
	"github.com/sgpti/sgpti-api/internal/utils"
	"github.com/sgpti/sgpti-api/internal/workflow"
)

// ProjectHandler exposes the project workflow endpoints.
type ProjectHandler struct {
	service service.ProjectService
	logger  zerolog.Logger
}

// NewProjectHandler constructs a project handler.
func NewProjectHandler(service service.ProjectService, logger zerolog.Logger) *ProjectHandler {
	return &ProjectHandler{
		service: service,
		logger:  logger.With().Str("component", "project_handler").Logger(),
	}
}

// Register binds the project routes. Static paths come before /:uuid.
func (h *ProjectHandler) Register(router fiber.Router) {
	router.Get("/statuses", h.statuses)
	router.Get("/types", h.types)
	router.Get("/my", h.listMine)
	router.Post("/", middleware.RequireRole(workflow.RoleStudent), h.create)

	router.Get("/:uuid", h.get)
	router.Put("/:uuid", h.update)
	router.Get("/:uuid/history", h.history)
	router.Post("/:uuid/submit", middleware.RequireRole(workflow.RoleStudent), h.submit)
	router.Put("/:uuid/status", middleware.RequireRole(workflow.RoleCommittee, workflow.RoleTeacher, workflow.RoleLibrary), h.updateStatus)

	router.Post("/:uuid/reviewers", middleware.RequireRole(workflow.RoleCommittee), h.assignReviewer)
	router.Delete("/:uuid/reviewers/:reviewerId", middleware.RequireRole(workflow.RoleCommittee), h.removeReviewer)

	authors := middleware.RequireRole(workflow.RoleStudent, workflow.RoleCommittee)
	router.Post("/:uuid/authors", authors, h.addAuthor)
	router.Delete("/:uuid/authors/:userId", authors, h.removeAuthor)
}

func (h *ProjectHandler) statuses(c *fiber.Ctx) error {
	return utils.SendSuccess(c, "statuses retrieved", h.service.Statuses())
}

func (h *ProjectHandler) types(c *fiber.Ctx) error {
	types, err := h.service.Types(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err, "failed to load project types")
	}
	return utils.SendSuccess(c, "project types retrieved", types)
}

func (h *ProjectHandler) listMine(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}
	offset, err := parseQueryInt(c, "offset")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid offset")
	}

	result, err := h.service.ListMine(c.UserContext(), actor, limit, offset)
	if err != nil {
		return respondError(c, h.logger, err, "failed to list projects")
	}

	return utils.OK(c, result.Items, "projects retrieved", fiber.Map{
		"total":  result.Total,
		"limit":  limit,
		"offset": offset,
	})
}

func (h *ProjectHandler) create(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	var payload dto.ProjectCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	project, err := h.service.Create(c.UserContext(), actor, payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to create project")
	}
	return utils.Created(c, project, "project created")
}

func (h *ProjectHandler) get(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	project, err := h.service.Get(c.UserContext(), actor, c.Params("uuid"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load project")
	}
	return utils.SendSuccess(c, "project retrieved", project)
}

func (h *ProjectHandler) update(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	var payload dto.ProjectUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	project, err := h.service.Update(c.UserContext(), actor, c.Params("uuid"), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update project")
	}
	return utils.SendSuccess(c, "project updated", project)
}

func (h *ProjectHandler) history(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	history, err := h.service.History(c.UserContext(), actor, c.Params("uuid"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to load project history")
	}
	return utils.SendSuccess(c, "project history retrieved", history)
}

func (h *ProjectHandler) submit(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	result, err := h.service.Submit(c.UserContext(), actor, c.Params("uuid"))
	if err != nil {
		return respondError(c, h.logger, err, "failed to submit project")
	}
	return utils.SendSuccess(c, "project submitted", result)
}

func (h *ProjectHandler) updateStatus(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	var payload dto.StatusUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.UpdateStatus(c.UserContext(), actor, c.Params("uuid"), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to update project status")
	}
	return utils.SendSuccess(c, "project status updated", result)
}

func (h *ProjectHandler) assignReviewer(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	var payload dto.ReviewerAssignRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	reviewers, err := h.service.AssignReviewer(c.UserContext(), actor, c.Params("uuid"), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to assign reviewer")
	}
	return utils.Created(c, reviewers, "reviewer assigned")
}

func (h *ProjectHandler) removeReviewer(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}
	reviewerID, ok := parseUintParam(c, "reviewerId")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid reviewer id")
	}

	reviewers, err := h.service.RemoveReviewer(c.UserContext(), actor, c.Params("uuid"), reviewerID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to remove reviewer")
	}
	return utils.SendSuccess(c, "reviewer removed", reviewers)
}

func (h *ProjectHandler) addAuthor(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}

	var payload dto.AuthorAddRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	authors, err := h.service.AddAuthor(c.UserContext(), actor, c.Params("uuid"), payload)
	if err != nil {
		return respondError(c, h.logger, err, "failed to add author")
	}
	return utils.Created(c, authors, "author added")
}

func (h *ProjectHandler) removeAuthor(c *fiber.Ctx) error {
	actor, ok := actorFromContext(c)
	if !ok {
		return sendUnauthenticated(c)
	}
	userID, ok := parseUintParam(c, "userId")
	if !ok {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid user id")
	}

	authors, err := h.service.RemoveAuthor(c.UserContext(), actor, c.Params("uuid"), userID)
	if err != nil {
		return respondError(c, h.logger, err, "failed to remove author")
	}
	return utils.SendSuccess(c, "author removed", authors)
}

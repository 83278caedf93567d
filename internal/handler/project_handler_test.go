package handler_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/sgpti/sgpti-api/internal/dto"
	"github.com/sgpti/sgpti-api/internal/handler"
	"github.com/sgpti/sgpti-api/internal/middleware"
	"github.com/sgpti/sgpti-api/internal/service"
)

func createProject(t *testing.T, f *apiFixture) dto.ProjectDetailResponse {
	t.Helper()
	resp := f.do(t, "student", http.MethodPost, "/api/v1/projects", map[string]interface{}{
		"title":  "Timetabling with SAT solvers",
		"typeId": 1,
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeEnvelope[dto.ProjectDetailResponse](t, resp)
	require.True(t, body.Success)
	return body.Data
}

func TestProjectWorkflowOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	project := createProject(t, f)
	require.Equal(t, "draft", project.Status.Code)
	base := "/api/v1/projects/" + project.UUID

	resp := f.do(t, "student", http.MethodPost, base+"/authors", map[string]interface{}{"userId": f.users["coauthor"].ID})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	resp = f.do(t, "student", http.MethodPost, base+"/submit", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	submitted := decodeEnvelope[dto.TransitionResponse](t, resp)
	require.Equal(t, "draft", submitted.Data.From)
	require.Equal(t, "submitted", submitted.Data.To)

	resp = f.do(t, "committee", http.MethodPost, base+"/reviewers", map[string]interface{}{
		"reviewerId": f.users["teacher"].ID,
		"roleType":   "advisor",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	reviewers := decodeEnvelope[[]dto.ReviewerResponse](t, resp)
	require.Len(t, reviewers.Data, 1)
	require.Equal(t, "advisor", reviewers.Data[0].RoleType)

	resp = f.do(t, "teacher", http.MethodGet, base, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	detail := decodeEnvelope[dto.ProjectDetailResponse](t, resp)
	require.Equal(t, "under_review", detail.Data.Status.Code)
	require.Len(t, detail.Data.Authors, 2)

	resp = f.do(t, "teacher", http.MethodPut, base+"/status", map[string]interface{}{"statusId": 5, "reason": "Solid work"})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	approved := decodeEnvelope[dto.TransitionResponse](t, resp)
	require.Equal(t, "approved", approved.Data.To)
	require.NotNil(t, approved.Data.Project.ApprovedAt)

	resp = f.do(t, "student", http.MethodGet, base+"/history", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	history := decodeEnvelope[[]dto.HistoryResponse](t, resp)
	require.Len(t, history.Data, 4)
	require.Equal(t, "approved", history.Data[3].ToStatus)

	resp = f.do(t, "student", http.MethodGet, "/api/v1/projects/my", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	mine := decodeEnvelope[[]dto.ProjectResponse](t, resp)
	require.Len(t, mine.Data, 1)
	require.Equal(t, float64(1), mine.Meta["total"])

	resp = f.do(t, "coauthor", http.MethodGet, "/api/v1/notifications?unread=true", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	inbox := decodeEnvelope[[]dto.NotificationResponse](t, resp)
	codes := make([]string, 0, len(inbox.Data))
	for _, item := range inbox.Data {
		codes = append(codes, item.Code)
	}
	require.ElementsMatch(t, []string{"PROJECT_SUBMITTED", "STATUS_CHANGED", "PROJECT_APPROVED"}, codes)
}

func TestProjectEndpointsMapErrors(t *testing.T) {
	f := newAPIFixture(t)
	project := createProject(t, f)
	base := "/api/v1/projects/" + project.UUID

	resp := f.do(t, "", http.MethodGet, "/api/v1/projects/my", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = f.do(t, "teacher", http.MethodPost, "/api/v1/projects", map[string]interface{}{"title": "Teacher project", "typeId": 1})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp = f.do(t, "student", http.MethodPost, "/api/v1/projects", map[string]interface{}{"title": "x"})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	invalid := decodeEnvelope[any](t, resp)
	require.False(t, invalid.Success)
	require.Equal(t, "min", invalid.Details["Title"])

	resp = f.do(t, "student", http.MethodGet, "/api/v1/projects/does-not-exist", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp = f.do(t, "teacher", http.MethodGet, base, nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode, "unassigned teachers cannot read drafts")

	resp = f.do(t, "committee", http.MethodPut, base+"/status", map[string]interface{}{"statusId": 5})
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "draft to approved is not an edge")

	resp = f.do(t, "student", http.MethodDelete, base+"/authors/"+"abc", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	resp = f.do(t, "student", http.MethodDelete, base+"/authors/"+uintString(f.users["student"].ID), nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, "the last author stays")

	resp = f.do(t, "student", http.MethodPut, base+"/status", map[string]interface{}{"statusId": 2})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode, "students use the submit endpoint")

	resp = f.do(t, "student", http.MethodGet, "/api/v1/projects/statuses", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	statuses := decodeEnvelope[[]dto.StatusResponse](t, resp)
	require.Len(t, statuses.Data, 7)

	resp = f.do(t, "student", http.MethodGet, "/api/v1/documents/stages", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
}

type failingProjectService struct {
	service.ProjectService
	err error
}

func (s failingProjectService) Types(context.Context) ([]dto.ProjectTypeResponse, error) {
	return nil, s.err
}

func (s failingProjectService) UpdateStatus(context.Context, service.Actor, string, dto.StatusUpdateRequest) (dto.TransitionResponse, error) {
	return dto.TransitionResponse{}, s.err
}

func mockedProjectApp(err error) *fiber.App {
	app := fiber.New()
	app.Use(middleware.CorrelationID())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(middleware.LocalUserID, uint(1))
		c.Locals(middleware.LocalUserRole, "committee")
		return c.Next()
	})
	handler.NewProjectHandler(failingProjectService{err: err}, zerolog.New(io.Discard)).Register(app.Group("/projects"))
	return app
}

func TestProjectHandlerHidesStoreErrors(t *testing.T) {
	app := mockedProjectApp(errors.New("pq: connection refused"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/projects/types", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	body := decodeEnvelope[any](t, resp)
	require.Equal(t, "failed to load project types", body.Message)
	require.NotContains(t, body.Message, "pq")
}

func TestProjectHandlerReportsStatusConflict(t *testing.T) {
	app := mockedProjectApp(service.ErrStatusConflict)

	req := httptest.NewRequest(http.MethodPut, "/projects/abc/status", strings.NewReader(`{"statusId":3}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

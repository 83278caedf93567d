package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sgpti/sgpti-api/internal/config"
	"github.com/sgpti/sgpti-api/internal/database"
	"github.com/sgpti/sgpti-api/internal/handler"
	"github.com/sgpti/sgpti-api/internal/middleware"
	"github.com/sgpti/sgpti-api/internal/models"
	"github.com/sgpti/sgpti-api/internal/notification"
	"github.com/sgpti/sgpti-api/internal/repository"
	"github.com/sgpti/sgpti-api/internal/router"
	"github.com/sgpti/sgpti-api/internal/service"
	"github.com/sgpti/sgpti-api/internal/workflow"
	"github.com/sgpti/sgpti-api/pkg/mailer"
)

const testSecret = "handler-test-secret"

type apiFixture struct {
	app           *fiber.App
	db            *gorm.DB
	notifications service.NotificationService
	tokens        map[string]string
	users         map[string]models.User
	streamCancel  context.CancelFunc
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db, notification.DefaultCatalog()))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	logger := zerolog.New(io.Discard)
	validate := validator.New()

	users := repository.NewUserRepository(db)
	projects := repository.NewProjectRepository(db)
	reviewers := repository.NewReviewerRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	comments := repository.NewCommentRepository(db)
	documents := repository.NewDocumentRepository(db)

	outbox, err := service.NewEmailOutbox(service.EmailOutboxConfig{Mode: config.EmailQueueInline}, mailer.NewLogMailer(logger), notificationRepo, nil, logger)
	require.NoError(t, err)

	notifications := service.NewNotificationService(service.NotificationDependencies{
		Notifications: notificationRepo,
		Users:         users,
		Projects:      projects,
		Reviewers:     reviewers,
		Outbox:        outbox,
		BaseURL:       "https://sgpti.uni.test",
		Logger:        logger,
	})
	engine := service.NewStatusEngine(projects, nil, logger)
	manager := service.NewReviewerManager(reviewers, users, logger)

	streamCtx, streamCancel := context.WithCancel(context.Background())
	t.Cleanup(streamCancel)

	cfg := config.Config{AppName: "SGPTI API", AppEnv: "test"}
	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		ProjectHandler:      handler.NewProjectHandler(service.NewProjectService(projects, reviewers, users, manager, engine, workflow.NewPolicy(true), notifications, validate, logger), logger),
		CommentHandler:      handler.NewCommentHandler(service.NewCommentService(comments, documents, projects, reviewers, notifications, validate, logger), logger, nil),
		DocumentHandler:     handler.NewDocumentHandler(service.NewDocumentService(documents, projects, reviewers, notifications, validate, logger), logger),
		NotificationHandler: handler.NewNotificationHandler(notifications, logger, time.Minute).StopStreamsOn(streamCtx),
		JWTMiddleware:       middleware.JWTProtected(testSecret),
	})

	f := &apiFixture{
		app:           app,
		db:            db,
		notifications: notifications,
		tokens:        map[string]string{},
		users:         map[string]models.User{},
		streamCancel:  streamCancel,
	}
	f.addUser(t, "student", "ana@uni.test", workflow.RoleStudent)
	f.addUser(t, "coauthor", "beto@uni.test", workflow.RoleStudent)
	f.addUser(t, "teacher", "carla@uni.test", workflow.RoleTeacher)
	f.addUser(t, "committee", "elena@uni.test", workflow.RoleCommittee)
	f.addUser(t, "library", "fabio@uni.test", workflow.RoleLibrary)
	return f
}

func (f *apiFixture) addUser(t *testing.T, key, email, role string) {
	t.Helper()
	user := models.User{UUID: uuid.NewString(), Email: email, FirstName: key, LastName: "Test", Role: role, IsActive: true}
	require.NoError(t, f.db.Create(&user).Error)

	token, err := middleware.IssueToken(testSecret, user.ID, role, time.Hour)
	require.NoError(t, err)
	f.tokens[key] = token
	f.users[key] = user
}

func (f *apiFixture) do(t *testing.T, as, method, path string, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token, ok := f.tokens[as]; ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := f.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

type envelope[T any] struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    T                 `json:"data"`
	Meta    map[string]any    `json:"meta"`
	Details map[string]string `json:"details"`
}

func decodeEnvelope[T any](t *testing.T, resp *http.Response) envelope[T] {
	t.Helper()
	defer resp.Body.Close()
	var body envelope[T]
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sgpti/sgpti-api/internal/config"
	"github.com/sgpti/sgpti-api/internal/database"
	"github.com/sgpti/sgpti-api/internal/models"
	"github.com/sgpti/sgpti-api/internal/notification"
	"github.com/sgpti/sgpti-api/internal/repository"
	"github.com/sgpti/sgpti-api/internal/workflow"
	"github.com/sgpti/sgpti-api/pkg/mailer"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mailer.Message
	fail bool
}

func (m *recordingMailer) Send(ctx context.Context, msg mailer.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("smtp unavailable")
	}
	m.sent = append(m.sent, msg)
	return nil
}

func (m *recordingMailer) messages() []mailer.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mailer.Message(nil), m.sent...)
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(context.Background(), db, notification.DefaultCatalog()))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return db
}

type workflowFixture struct {
	db            *gorm.DB
	mailer        *recordingMailer
	engine        *StatusEngine
	projects      ProjectService
	comments      CommentService
	documents     DocumentService
	notifications NotificationService

	projectRepo      repository.ProjectRepository
	notificationRepo repository.NotificationRepository

	student   models.User
	coauthor  models.User
	teacher   models.User
	outsider  models.User
	committee models.User
	library   models.User
}

func newWorkflowFixture(t *testing.T, strict bool) *workflowFixture {
	t.Helper()

	db := setupServiceDB(t)
	logger := testLogger()
	validate := validator.New()

	users := repository.NewUserRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	reviewerRepo := repository.NewReviewerRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	documentRepo := repository.NewDocumentRepository(db)

	sender := &recordingMailer{}
	outbox, err := NewEmailOutbox(EmailOutboxConfig{Mode: config.EmailQueueInline}, sender, notificationRepo, nil, logger)
	require.NoError(t, err)

	notifications := NewNotificationService(NotificationDependencies{
		Notifications: notificationRepo,
		Users:         users,
		Projects:      projectRepo,
		Reviewers:     reviewerRepo,
		Catalog:       notification.DefaultCatalog(),
		Outbox:        outbox,
		BaseURL:       "https://sgpti.uni.test",
		Logger:        logger,
	})
	engine := NewStatusEngine(projectRepo, nil, logger)
	manager := NewReviewerManager(reviewerRepo, users, logger)

	f := &workflowFixture{
		db:               db,
		mailer:           sender,
		engine:           engine,
		notifications:    notifications,
		projectRepo:      projectRepo,
		notificationRepo: notificationRepo,
		projects:         NewProjectService(projectRepo, reviewerRepo, users, manager, engine, workflow.NewPolicy(strict), notifications, validate, logger),
		comments:         NewCommentService(commentRepo, documentRepo, projectRepo, reviewerRepo, notifications, validate, logger),
		documents:        NewDocumentService(documentRepo, projectRepo, reviewerRepo, notifications, validate, logger),
	}

	f.student = f.createUser(t, "ana@uni.test", "Ana", workflow.RoleStudent)
	f.coauthor = f.createUser(t, "beto@uni.test", "Beto", workflow.RoleStudent)
	f.teacher = f.createUser(t, "carla@uni.test", "Carla", workflow.RoleTeacher)
	f.outsider = f.createUser(t, "dario@uni.test", "Dario", workflow.RoleTeacher)
	f.committee = f.createUser(t, "elena@uni.test", "Elena", workflow.RoleCommittee)
	f.library = f.createUser(t, "fabio@uni.test", "Fabio", workflow.RoleLibrary)

	return f
}

func (f *workflowFixture) createUser(t *testing.T, email, name, role string) models.User {
	t.Helper()
	user := models.User{UUID: uuid.NewString(), Email: email, FirstName: name, LastName: "Test", Role: role, IsActive: true}
	require.NoError(t, f.db.Create(&user).Error)
	return user
}

func (f *workflowFixture) actor(user models.User) Actor {
	return Actor{ID: user.ID, Role: user.Role}
}

func (f *workflowFixture) inbox(t *testing.T, user models.User) []models.Notification {
	t.Helper()
	var items []models.Notification
	require.NoError(t, f.db.Preload("Type").Where("user_id = ?", user.ID).Order("id ASC").Find(&items).Error)
	return items
}

func (f *workflowFixture) historyCount(t *testing.T, projectID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.ProjectStatusHistory{}).Where("project_id = ?", projectID).Count(&count).Error)
	return count
}

func (f *workflowFixture) notificationCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, f.db.Model(&models.Notification{}).Count(&count).Error)
	return count
}

package database

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sgpti/sgpti-api/internal/models"
	"github.com/sgpti/sgpti-api/internal/notification"
)

func TestMigrateSeedsCataloguesIdempotently(t *testing.T) {
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())), &gorm.Config{})
	require.NoError(t, err)

	catalog := notification.DefaultCatalog()
	require.NoError(t, Migrate(context.Background(), db, catalog))
	require.NoError(t, Migrate(context.Background(), db, catalog))

	var statuses []models.ProjectStatus
	require.NoError(t, db.Order("sort_order").Find(&statuses).Error)
	require.Len(t, statuses, 7)
	require.Equal(t, "draft", statuses[0].Code)
	require.Equal(t, "archived", statuses[6].Code)

	var types int64
	require.NoError(t, db.Model(&models.NotificationType{}).Count(&types).Error)
	require.Equal(t, int64(len(catalog.Templates())), types)

	var submitted models.NotificationType
	require.NoError(t, db.Where("code = ?", string(notification.ProjectSubmitted)).First(&submitted).Error)
	require.Contains(t, submitted.TemplateBody, "{{project_title}}")

	var projectTypes, stages int64
	require.NoError(t, db.Model(&models.ProjectType{}).Count(&projectTypes).Error)
	require.NoError(t, db.Model(&models.DeliverableStage{}).Count(&stages).Error)
	require.Equal(t, int64(len(DefaultProjectTypes)), projectTypes)
	require.Equal(t, int64(len(DefaultStages)), stages)
}

func TestConnectersRejectEmptyInput(t *testing.T) {
	_, err := ConnectPostgres("", zerolog.Nop())
	require.Error(t, err)

	client, err := ConnectRedis(context.Background(), "")
	require.NoError(t, err)
	require.Nil(t, client)

	conn, err := ConnectNATS("", "test", zerolog.Nop())
	require.NoError(t, err)
	require.Nil(t, conn)
}

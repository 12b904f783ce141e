package repositories_test

import (
	"context"
	"os"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	appctx "github.com/werkbank-digital/planned/pkg/context"
	"github.com/werkbank-digital/planned/pkg/database"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/repositories"
)

func getTestLogger() ectologger.Logger {
	zapLogger, _ := zap.NewDevelopment()
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}

func getTestDB(t *testing.T) database.DB {
	dbHost := os.Getenv("DB_HOST")
	if dbHost == "" {
		t.Skip("DB_HOST not set, skipping database test")
	}
	dbUser := os.Getenv("DB_USER_NAME")
	if dbUser == "" {
		dbUser = "user"
	}
	dbPass := os.Getenv("DB_PASSWORD")
	if dbPass == "" {
		dbPass = "password"
	}
	dbName := os.Getenv("DB_NAME")
	if dbName == "" {
		dbName = "planned"
	}

	dsn := "host=" + dbHost + " user=" + dbUser + " password=" + dbPass + " dbname=" + dbName + " sslmode=disable"
	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err, "Failed to connect to test database")

	return database.NewDatabaseInstance(db, getTestLogger())
}

func getTestContext(tenantID uuid.UUID) context.Context {
	ctx := context.Background()
	return appctx.SetTenantID(ctx, tenantID.String())
}

func TestSyncLogRepository_Lifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := repositories.NewSyncLogRepository(db, getTestLogger())
	tenantID := uuid.New()
	ctx := getTestContext(tenantID)

	log := models.NewSyncLog(tenantID, models.SyncServiceAsana, "sync_projects")
	require.NoError(t, repo.Create(ctx, &log))
	assert.Equal(t, models.SyncStatusRunning, log.Status)

	require.NoError(t, repo.MarkCompleted(ctx, log.ID, models.SyncStatusSuccess, "created=2 updated=1"))

	logs, err := repo.ListRecent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, models.SyncStatusSuccess, logs[0].Status)
	require.NotNil(t, logs[0].CompletedAt)
	require.NotNil(t, logs[0].Message)
	assert.Equal(t, "created=2 updated=1", *logs[0].Message)
}

func TestSyncLogRepository_RequiresTenant(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db := getTestDB(t)
	repo := repositories.NewSyncLogRepository(db, getTestLogger())

	log := models.NewSyncLog(uuid.New(), models.SyncServiceTimeTac, "sync_absences")
	err := repo.Create(context.Background(), &log)
	assert.Error(t, err)
}

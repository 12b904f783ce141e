package sync_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/sync"
)

func linkedProject(tenantID uuid.UUID) *models.Project {
	return &models.Project{
		ID:       uuid.New(),
		TenantID: tenantID,
		Name:     "Dachstuhl Maier",
		Status:   models.ProjectStatusActive,
		AsanaGID: ptr("gid-1"),
	}
}

func TestUnlinkProject_NotFound(t *testing.T) {
	projects := &projectStoreMock{}
	projects.On("GetByID", mock.Anything, mock.Anything).Return(nil, errors.New("not found"))

	result, err := sync.NewUnlinkProject(projects, silentLogger()).Execute(context.Background(), uuid.New(), uuid.New())

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, sync.CodeNotFound, result.Code)
}

func TestUnlinkProject_ForbiddenForOtherTenant(t *testing.T) {
	projects := &projectStoreMock{}
	project := linkedProject(uuid.New())
	projects.On("GetByID", mock.Anything, project.ID).Return(project, nil)

	result, err := sync.NewUnlinkProject(projects, silentLogger()).Execute(context.Background(), uuid.New(), project.ID)

	require.NoError(t, err)
	assert.Equal(t, sync.CodeForbidden, result.Code)
	projects.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUnlinkProject_NotLinked(t *testing.T) {
	tenantID := uuid.New()
	projects := &projectStoreMock{}
	project := linkedProject(tenantID)
	project.AsanaGID = nil
	projects.On("GetByID", mock.Anything, project.ID).Return(project, nil)

	result, err := sync.NewUnlinkProject(projects, silentLogger()).Execute(context.Background(), tenantID, project.ID)

	require.NoError(t, err)
	assert.Equal(t, sync.CodeNotLinked, result.Code)
	projects.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUnlinkProject_ClearsLinkage(t *testing.T) {
	tenantID := uuid.New()
	projects := &projectStoreMock{}
	project := linkedProject(tenantID)
	project.SyncedAt = ptr(day(2026, 8, 20))
	projects.On("GetByID", mock.Anything, project.ID).Return(project, nil)
	projects.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
		return p.ID == project.ID && p.AsanaGID == nil && p.SyncedAt == nil && p.Name == "Dachstuhl Maier"
	})).Return(nil).Once()

	result, err := sync.NewUnlinkProject(projects, silentLogger()).Execute(context.Background(), tenantID, project.ID)

	require.NoError(t, err)
	assert.True(t, result.Success)
	projects.AssertExpectations(t)
}

func TestUnlinkProject_StorageFailureIsAnError(t *testing.T) {
	tenantID := uuid.New()
	projects := &projectStoreMock{}
	project := linkedProject(tenantID)
	projects.On("GetByID", mock.Anything, project.ID).Return(project, nil)
	projects.On("Update", mock.Anything, mock.Anything).Return(errors.New("connection reset"))

	result, err := sync.NewUnlinkProject(projects, silentLogger()).Execute(context.Background(), tenantID, project.ID)

	assert.Error(t, err)
	assert.Nil(t, result)
}

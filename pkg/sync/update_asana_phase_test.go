package sync_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/sync"
)

type phaseUpdateFixture struct {
	credentials *credentialsStoreMock
	projects    *projectStoreMock
	phases      *phaseStoreMock
	api         *asanaAPIMock
	useCase     *sync.UpdateAsanaPhase
}

func newPhaseUpdateFixture() *phaseUpdateFixture {
	f := &phaseUpdateFixture{
		credentials: &credentialsStoreMock{},
		projects:    &projectStoreMock{},
		phases:      &phaseStoreMock{},
		api:         &asanaAPIMock{},
	}
	f.useCase = sync.NewUpdateAsanaPhase(f.credentials, f.projects, f.phases, f.api, fakeCipher{}, silentLogger())
	return f
}

func linkedPhase(tenantID uuid.UUID) *models.ProjectPhase {
	return &models.ProjectPhase{
		ID:        uuid.New(),
		TenantID:  tenantID,
		ProjectID: uuid.New(),
		Name:      "Produktion",
		AsanaGID:  ptr("s-1"),
	}
}

func TestUpdateAsanaPhase_NotFound(t *testing.T) {
	f := newPhaseUpdateFixture()
	f.phases.On("GetByID", mock.Anything, mock.Anything).Return(nil, errors.New("not found"))

	result, err := f.useCase.Execute(context.Background(), uuid.New(), uuid.New(), sync.PhaseUpdate{Name: ptr("Montage")})

	require.NoError(t, err)
	assert.Equal(t, sync.CodeNotFound, result.Code)
	f.phases.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateAsanaPhase_ForbiddenForOtherTenant(t *testing.T) {
	f := newPhaseUpdateFixture()
	phase := linkedPhase(uuid.New())
	f.phases.On("GetByID", mock.Anything, phase.ID).Return(phase, nil)

	result, err := f.useCase.Execute(context.Background(), uuid.New(), phase.ID, sync.PhaseUpdate{Name: ptr("Montage")})

	require.NoError(t, err)
	assert.Equal(t, sync.CodeForbidden, result.Code)
	f.phases.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestUpdateAsanaPhase_UnlinkedPhaseStaysLocal(t *testing.T) {
	f := newPhaseUpdateFixture()
	tenantID := uuid.New()
	phase := linkedPhase(tenantID)
	phase.AsanaGID = nil
	f.phases.On("GetByID", mock.Anything, phase.ID).Return(phase, nil)
	f.phases.On("Update", mock.Anything, mock.MatchedBy(func(p *models.ProjectPhase) bool {
		return p.Name == "Montage"
	})).Return(nil).Once()

	result, err := f.useCase.Execute(context.Background(), tenantID, phase.ID, sync.PhaseUpdate{Name: ptr("Montage")})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Synced)
	f.credentials.AssertNotCalled(t, "GetByTenant", mock.Anything)
}

func TestUpdateAsanaPhase_DeadTokenDegradesToLocalOnly(t *testing.T) {
	f := newPhaseUpdateFixture()
	tenantID := uuid.New()
	phase := linkedPhase(tenantID)
	f.phases.On("GetByID", mock.Anything, phase.ID).Return(phase, nil)
	f.phases.On("Update", mock.Anything, mock.Anything).Return(nil).Once()

	// Expired token and no refresh token stored
	expired := time.Now().Add(-time.Hour)
	f.credentials.On("GetByTenant", mock.Anything).Return(asanaCredentials("ws-1", &expired), nil)

	result, err := f.useCase.Execute(context.Background(), tenantID, phase.ID, sync.PhaseUpdate{Name: ptr("Montage")})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Synced)
	f.api.AssertNotCalled(t, "UpdateSection", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestUpdateAsanaPhase_PushFailureReturnsSyncError(t *testing.T) {
	f := newPhaseUpdateFixture()
	tenantID := uuid.New()
	phase := linkedPhase(tenantID)
	f.phases.On("GetByID", mock.Anything, phase.ID).Return(phase, nil)
	f.phases.On("Update", mock.Anything, mock.Anything).Return(nil).Once()

	valid := time.Now().Add(time.Hour)
	f.credentials.On("GetByTenant", mock.Anything).Return(asanaCredentials("ws-1", &valid), nil)
	f.api.On("UpdateSection", mock.Anything, "s-1", "Montage", "access-1").Return(errors.New("503"))

	result, err := f.useCase.Execute(context.Background(), tenantID, phase.ID, sync.PhaseUpdate{Name: ptr("Montage")})

	require.NoError(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, sync.CodeSyncError, result.Code)
	require.NotNil(t, result.AsanaGID)
	assert.Equal(t, "s-1", *result.AsanaGID)
	f.phases.AssertExpectations(t)
}

func TestUpdateAsanaPhase_PushesNameAndBudget(t *testing.T) {
	f := newPhaseUpdateFixture()
	tenantID := uuid.New()
	phase := linkedPhase(tenantID)
	f.phases.On("GetByID", mock.Anything, phase.ID).Return(phase, nil)
	f.phases.On("Update", mock.Anything, mock.MatchedBy(func(p *models.ProjectPhase) bool {
		return p.Name == "Montage" && p.BudgetHours != nil && *p.BudgetHours == 120
	})).Return(nil).Once()

	valid := time.Now().Add(time.Hour)
	credentials := asanaCredentials("ws-1", &valid)
	credentials.AsanaBudgetHoursFieldID = ptr("bud-1")
	f.credentials.On("GetByTenant", mock.Anything).Return(credentials, nil)

	project := &models.Project{ID: phase.ProjectID, TenantID: tenantID, Name: "Neubau Schmid", AsanaGID: ptr("p-1")}
	f.projects.On("GetByID", mock.Anything, phase.ProjectID).Return(project, nil)

	f.api.On("UpdateSection", mock.Anything, "s-1", "Montage", "access-1").Return(nil).Once()
	f.api.On("UpdateProjectCustomField", mock.Anything, "p-1", "bud-1", 120.0, "access-1").Return(nil).Once()

	result, err := f.useCase.Execute(context.Background(), tenantID, phase.ID,
		sync.PhaseUpdate{Name: ptr("Montage"), BudgetHours: ptr(120.0)})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Synced)
	f.api.AssertExpectations(t)
}

func TestUpdateAsanaPhase_NegativeBudgetIsAnError(t *testing.T) {
	f := newPhaseUpdateFixture()
	tenantID := uuid.New()
	phase := linkedPhase(tenantID)
	f.phases.On("GetByID", mock.Anything, phase.ID).Return(phase, nil)

	result, err := f.useCase.Execute(context.Background(), tenantID, phase.ID, sync.PhaseUpdate{BudgetHours: ptr(-5.0)})

	assert.Error(t, err)
	assert.Nil(t, result)
	f.phases.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

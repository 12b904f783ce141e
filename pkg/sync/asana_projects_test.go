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

	"github.com/werkbank-digital/planned/pkg/asana"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/sync"
)

type asanaSyncFixture struct {
	credentials *credentialsStoreMock
	projects    *projectStoreMock
	phases      *phaseStoreMock
	syncLogs    *syncLogStoreMock
	api         *asanaAPIMock
	useCase     *sync.SyncAsanaProjects
}

func newAsanaSyncFixture() *asanaSyncFixture {
	f := &asanaSyncFixture{
		credentials: &credentialsStoreMock{},
		projects:    &projectStoreMock{},
		phases:      &phaseStoreMock{},
		syncLogs:    &syncLogStoreMock{},
		api:         &asanaAPIMock{},
	}
	f.useCase = sync.NewSyncAsanaProjects(
		f.credentials, f.projects, f.phases, f.syncLogs, f.api, fakeCipher{}, nil, silentLogger(),
	)
	return f
}

func (f *asanaSyncFixture) expectSyncLog() {
	f.syncLogs.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
}

func asanaCredentials(workspace string, expiresAt *time.Time) *models.IntegrationCredentials {
	credentials := &models.IntegrationCredentials{
		ID:               uuid.New(),
		AsanaAccessToken: ptr("enc:access-1"),
		AsanaWorkspaceID: ptr(workspace),
	}
	credentials.AsanaTokenExpiresAt = expiresAt
	return credentials
}

func TestSyncAsanaProjects_NoCredentials(t *testing.T) {
	f := newAsanaSyncFixture()
	f.expectSyncLog()
	f.credentials.On("GetByTenant", mock.Anything).Return(nil, noCredentialsErr())
	f.syncLogs.On("MarkCompleted", mock.Anything, mock.Anything, models.SyncStatusFailed, mock.Anything).Return(nil).Once()

	result := f.useCase.Execute(context.Background(), uuid.New())

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "not connected")
	f.syncLogs.AssertExpectations(t)
	f.api.AssertNotCalled(t, "GetProjects", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncAsanaProjects_CredentialsStoreFailureIsNotNotConnected(t *testing.T) {
	f := newAsanaSyncFixture()
	f.expectSyncLog()
	f.credentials.On("GetByTenant", mock.Anything).Return(nil, errors.New("db connection reset"))
	f.syncLogs.On("MarkCompleted", mock.Anything, mock.Anything, models.SyncStatusFailed, mock.Anything).Return(nil).Once()

	result := f.useCase.Execute(context.Background(), uuid.New())

	assert.False(t, result.Success)
	require.Len(t, result.Errors, 1)
	assert.NotContains(t, result.Errors[0], "not connected")
	assert.Contains(t, result.Errors[0], "db connection reset")
	f.api.AssertNotCalled(t, "GetProjects", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncAsanaProjects_ExpiredTokenNoRefresh(t *testing.T) {
	f := newAsanaSyncFixture()
	f.expectSyncLog()
	expired := time.Now().Add(-time.Hour).UTC()
	f.credentials.On("GetByTenant", mock.Anything).Return(asanaCredentials("ws-1", &expired), nil)
	f.syncLogs.On("MarkCompleted", mock.Anything, mock.Anything, models.SyncStatusFailed, "token expired and no refresh token").Return(nil).Once()

	result := f.useCase.Execute(context.Background(), uuid.New())

	assert.False(t, result.Success)
	f.syncLogs.AssertExpectations(t)
}

func TestSyncAsanaProjects_RefreshPersistsAndUsesNewToken(t *testing.T) {
	f := newAsanaSyncFixture()
	f.expectSyncLog()

	expired := time.Now().Add(-time.Hour).UTC()
	credentials := asanaCredentials("ws-1", &expired)
	credentials.AsanaRefreshToken = ptr("enc:refresh-1")
	f.credentials.On("GetByTenant", mock.Anything).Return(credentials, nil)

	f.api.On("RefreshAccessToken", mock.Anything, "refresh-1").
		Return(&asana.TokenResponse{AccessToken: "access-2", RefreshToken: "refresh-2", ExpiresIn: 3600}, nil).Once()
	f.credentials.On("UpdateAsanaTokens", mock.Anything, "enc:access-2", "enc:refresh-2", mock.Anything).Return(nil).Once()

	// The rest of the run must carry the refreshed token, not re-read storage
	f.api.On("GetProjects", mock.Anything, "ws-1", "access-2").Return([]asana.RemoteProject{}, nil).Once()
	f.projects.On("List", mock.Anything).Return([]models.Project{}, nil)
	f.syncLogs.On("MarkCompleted", mock.Anything, mock.Anything, models.SyncStatusSuccess, mock.Anything).Return(nil).Once()

	result := f.useCase.Execute(context.Background(), uuid.New())

	assert.True(t, result.Success)
	f.credentials.AssertExpectations(t)
	f.api.AssertExpectations(t)
}

func TestSyncAsanaProjects_CreatesAndArchives(t *testing.T) {
	f := newAsanaSyncFixture()
	f.expectSyncLog()
	tenantID := uuid.New()

	f.credentials.On("GetByTenant", mock.Anything).Return(asanaCredentials("ws-1", nil), nil)
	f.api.On("GetProjects", mock.Anything, "ws-1", "access-1").Return([]asana.RemoteProject{
		{GID: "p-1", Name: "Neubau Schmid"},
		{GID: "p-2", Name: "Altbau Weber", Archived: true},
	}, nil)

	f.projects.On("FindByAsanaGID", mock.Anything, "p-1").Return(nil, nil)
	f.projects.On("FindByAsanaGID", mock.Anything, "p-2").Return(nil, nil)

	var createdStatuses []models.ProjectStatus
	f.projects.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		project := args.Get(1).(*models.Project)
		createdStatuses = append(createdStatuses, project.Status)
	}).Return(nil).Twice()

	f.api.On("GetSections", mock.Anything, "p-1", "access-1").Return([]asana.RemoteSection{}, nil)
	f.api.On("GetSections", mock.Anything, "p-2", "access-1").Return([]asana.RemoteSection{}, nil)

	// A stale linked project not in the remote set gets completed
	stale := models.Project{ID: uuid.New(), TenantID: tenantID, Name: "Abriss Maier", Status: models.ProjectStatusActive}
	stale.AsanaGID = ptr("p-gone")
	f.projects.On("List", mock.Anything).Return([]models.Project{stale}, nil)
	f.projects.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
		return p.ID == stale.ID && p.Status == models.ProjectStatusCompleted
	})).Return(nil).Once()

	f.syncLogs.On("MarkCompleted", mock.Anything, mock.Anything, models.SyncStatusSuccess, mock.Anything).Return(nil).Once()

	result := f.useCase.Execute(context.Background(), tenantID)

	assert.True(t, result.Success)
	assert.Equal(t, 2, result.ProjectsCreated)
	assert.Equal(t, 1, result.ProjectsArchived)
	assert.Empty(t, result.Errors)
	// Remote archival forces completed on creation
	require.Len(t, createdStatuses, 2)
	assert.Equal(t, models.ProjectStatusActive, createdStatuses[0])
	assert.Equal(t, models.ProjectStatusCompleted, createdStatuses[1])
	f.projects.AssertExpectations(t)
}

func TestSyncAsanaProjects_PartialFailureKeepsRunning(t *testing.T) {
	f := newAsanaSyncFixture()
	f.expectSyncLog()

	f.credentials.On("GetByTenant", mock.Anything).Return(asanaCredentials("ws-1", nil), nil)
	f.api.On("GetProjects", mock.Anything, "ws-1", "access-1").Return([]asana.RemoteProject{
		{GID: "bad", Name: "Kaputt"},
		{GID: "good", Name: "Heil"},
	}, nil)

	f.projects.On("FindByAsanaGID", mock.Anything, "bad").Return(nil, errors.New("db glitch"))
	f.projects.On("FindByAsanaGID", mock.Anything, "good").Return(nil, nil)
	f.projects.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.api.On("GetSections", mock.Anything, "good", "access-1").Return([]asana.RemoteSection{}, nil)
	f.projects.On("List", mock.Anything).Return([]models.Project{}, nil)
	f.syncLogs.On("MarkCompleted", mock.Anything, mock.Anything, models.SyncStatusSuccess, mock.Anything).Return(nil).Once()

	result := f.useCase.Execute(context.Background(), uuid.New())

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProjectsCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Projekt Kaputt:")
	f.syncLogs.AssertExpectations(t)
}

func TestSyncAsanaProjects_UpdatesExistingAndSyncsPhases(t *testing.T) {
	f := newAsanaSyncFixture()
	f.expectSyncLog()
	tenantID := uuid.New()

	credentials := asanaCredentials("ws-1", nil)
	credentials.AsanaBereichFieldID = ptr("ber-1")
	credentials.AsanaBudgetHoursFieldID = ptr("bud-1")
	f.credentials.On("GetByTenant", mock.Anything).Return(credentials, nil)

	f.api.On("GetProjects", mock.Anything, "ws-1", "access-1").Return([]asana.RemoteProject{
		{GID: "p-1", Name: "Neubau Schmid"},
	}, nil)

	existing := models.Project{ID: uuid.New(), TenantID: tenantID, Name: "Alter Name", Status: models.ProjectStatusPaused}
	existing.AsanaGID = ptr("p-1")
	f.projects.On("FindByAsanaGID", mock.Anything, "p-1").Return(&existing, nil)
	f.projects.On("Update", mock.Anything, mock.MatchedBy(func(p *models.Project) bool {
		// Unarchived remote projects keep their local status
		return p.Name == "Neubau Schmid" && p.Status == models.ProjectStatusPaused && p.SyncedAt != nil
	})).Return(nil).Once()

	f.api.On("GetSections", mock.Anything, "p-1", "access-1").Return([]asana.RemoteSection{
		{GID: "s-1", Name: "Abbund", CustomFields: []asana.CustomField{
			{GID: "ber-1", EnumValue: &asana.EnumValue{Name: "Produktion"}},
			{GID: "bud-1", NumberValue: ptr(80.0)},
		}},
		{GID: "s-2", Name: "Montage"},
	}, nil)

	f.phases.On("FindByAsanaGID", mock.Anything, existing.ID, "s-1").Return(nil, nil)
	f.phases.On("FindByAsanaGID", mock.Anything, existing.ID, "s-2").Return(nil, nil)

	var createdPhases []models.ProjectPhase
	f.phases.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		createdPhases = append(createdPhases, *args.Get(1).(*models.ProjectPhase))
	}).Return(nil).Twice()

	f.projects.On("List", mock.Anything).Return([]models.Project{existing}, nil)
	f.syncLogs.On("MarkCompleted", mock.Anything, mock.Anything, models.SyncStatusSuccess, mock.Anything).Return(nil).Once()

	result := f.useCase.Execute(context.Background(), tenantID)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProjectsUpdated)
	assert.Equal(t, 2, result.PhasesCreated)

	// Section order drives the sort order, zero-based
	require.Len(t, createdPhases, 2)
	assert.Equal(t, 0, createdPhases[0].SortOrder)
	assert.Equal(t, 1, createdPhases[1].SortOrder)
	require.NotNil(t, createdPhases[0].Bereich)
	assert.Equal(t, models.BereichProduktion, *createdPhases[0].Bereich)
	require.NotNil(t, createdPhases[0].BudgetHours)
	assert.Equal(t, 80.0, *createdPhases[0].BudgetHours)
	assert.Nil(t, createdPhases[1].Bereich)
}

func TestSyncAsanaProjects_PhasesInheritProjectSollHours(t *testing.T) {
	f := newAsanaSyncFixture()
	f.expectSyncLog()
	tenantID := uuid.New()

	credentials := asanaCredentials("ws-1", nil)
	credentials.AsanaSollProduktionFieldID = ptr("sp-1")
	credentials.AsanaSollMontageFieldID = ptr("sm-1")
	credentials.AsanaBereichFieldID = ptr("ber-1")
	credentials.AsanaBudgetHoursFieldID = ptr("bud-1")
	f.credentials.On("GetByTenant", mock.Anything).Return(credentials, nil)

	f.api.On("GetProjects", mock.Anything, "ws-1", "access-1").Return([]asana.RemoteProject{
		{GID: "p-1", Name: "Aufstockung Keller", CustomFields: []asana.CustomField{
			{GID: "sp-1", NumberValue: ptr(240.0)},
			{GID: "sm-1", NumberValue: ptr(80.0)},
		}},
	}, nil)
	f.projects.On("FindByAsanaGID", mock.Anything, "p-1").Return(nil, nil)
	f.projects.On("Create", mock.Anything, mock.Anything).Return(nil).Once()

	f.api.On("GetSections", mock.Anything, "p-1", "access-1").Return([]asana.RemoteSection{
		{GID: "s-1", Name: "Abbund", CustomFields: []asana.CustomField{
			{GID: "ber-1", EnumValue: &asana.EnumValue{Name: "Produktion"}},
		}},
		{GID: "s-2", Name: "Montage vor Ort", CustomFields: []asana.CustomField{
			{GID: "ber-1", EnumValue: &asana.EnumValue{Name: "Montage"}},
			{GID: "bud-1", NumberValue: ptr(60.0)},
		}},
		{GID: "s-3", Name: "Planung"},
	}, nil)
	f.phases.On("FindByAsanaGID", mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)

	var createdPhases []models.ProjectPhase
	f.phases.On("Create", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		createdPhases = append(createdPhases, *args.Get(1).(*models.ProjectPhase))
	}).Return(nil).Times(3)

	f.projects.On("List", mock.Anything).Return([]models.Project{}, nil)
	f.syncLogs.On("MarkCompleted", mock.Anything, mock.Anything, models.SyncStatusSuccess, mock.Anything).Return(nil).Once()

	result := f.useCase.Execute(context.Background(), tenantID)

	assert.True(t, result.Success)
	require.Len(t, createdPhases, 3)

	// No own budget: the produktion phase inherits the project SOLL
	require.NotNil(t, createdPhases[0].BudgetHours)
	assert.Equal(t, 240.0, *createdPhases[0].BudgetHours)

	// A section-level budget wins over the project SOLL
	require.NotNil(t, createdPhases[1].BudgetHours)
	assert.Equal(t, 60.0, *createdPhases[1].BudgetHours)

	// No bereich means no SOLL to inherit
	assert.Nil(t, createdPhases[2].BudgetHours)
}

func TestSyncAsanaProjects_PhaseFailureIsolated(t *testing.T) {
	f := newAsanaSyncFixture()
	f.expectSyncLog()

	f.credentials.On("GetByTenant", mock.Anything).Return(asanaCredentials("ws-1", nil), nil)
	f.api.On("GetProjects", mock.Anything, "ws-1", "access-1").Return([]asana.RemoteProject{
		{GID: "p-1", Name: "Neubau Schmid"},
	}, nil)
	f.projects.On("FindByAsanaGID", mock.Anything, "p-1").Return(nil, nil)
	f.projects.On("Create", mock.Anything, mock.Anything).Return(nil).Once()
	f.api.On("GetSections", mock.Anything, "p-1", "access-1").Return(nil, errors.New("asana 500"))
	f.projects.On("List", mock.Anything).Return([]models.Project{}, nil)
	f.syncLogs.On("MarkCompleted", mock.Anything, mock.Anything, models.SyncStatusSuccess, mock.Anything).Return(nil).Once()

	result := f.useCase.Execute(context.Background(), uuid.New())

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.ProjectsCreated)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "Phasen-Sync für Projekt")
}

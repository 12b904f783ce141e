package sync_test

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/werkbank-digital/planned/pkg/asana"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/timetac"
)

func silentLogger() ectologger.Logger {
	return ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
}

// fakeCipher prefixes instead of encrypting so assertions stay readable
type fakeCipher struct{}

func (fakeCipher) Encrypt(plaintext string) (string, error) {
	return "enc:" + plaintext, nil
}

func (fakeCipher) Decrypt(ciphertext string) (string, error) {
	return strings.TrimPrefix(ciphertext, "enc:"), nil
}

func ptr[T any](v T) *T { return &v }

// noCredentialsErr mirrors the repository's 404 for a tenant without a
// credentials row
func noCredentialsErr() error {
	return httperror.NewHTTPError(http.StatusNotFound, "no integration credentials configured")
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type credentialsStoreMock struct {
	mock.Mock
}

func (m *credentialsStoreMock) GetByTenant(ctx context.Context) (*models.IntegrationCredentials, error) {
	args := m.Called(ctx)
	if credentials, ok := args.Get(0).(*models.IntegrationCredentials); ok {
		return credentials, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *credentialsStoreMock) Upsert(ctx context.Context, credentials *models.IntegrationCredentials) error {
	args := m.Called(ctx, credentials)
	return args.Error(0)
}

func (m *credentialsStoreMock) UpdateAsanaTokens(ctx context.Context, accessToken, refreshToken string, expiresAt time.Time) error {
	args := m.Called(ctx, accessToken, refreshToken, expiresAt)
	return args.Error(0)
}

type projectStoreMock struct {
	mock.Mock
}

func (m *projectStoreMock) GetByID(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	args := m.Called(ctx, id)
	if project, ok := args.Get(0).(*models.Project); ok {
		return project, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *projectStoreMock) FindByAsanaGID(ctx context.Context, asanaGID string) (*models.Project, error) {
	args := m.Called(ctx, asanaGID)
	if project, ok := args.Get(0).(*models.Project); ok {
		return project, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *projectStoreMock) List(ctx context.Context) ([]models.Project, error) {
	args := m.Called(ctx)
	if projects, ok := args.Get(0).([]models.Project); ok {
		return projects, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *projectStoreMock) Create(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

func (m *projectStoreMock) Update(ctx context.Context, project *models.Project) error {
	args := m.Called(ctx, project)
	return args.Error(0)
}

type phaseStoreMock struct {
	mock.Mock
}

func (m *phaseStoreMock) GetByID(ctx context.Context, id uuid.UUID) (*models.ProjectPhase, error) {
	args := m.Called(ctx, id)
	if phase, ok := args.Get(0).(*models.ProjectPhase); ok {
		return phase, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *phaseStoreMock) FindByAsanaGID(ctx context.Context, projectID uuid.UUID, asanaGID string) (*models.ProjectPhase, error) {
	args := m.Called(ctx, projectID, asanaGID)
	if phase, ok := args.Get(0).(*models.ProjectPhase); ok {
		return phase, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *phaseStoreMock) ListByProject(ctx context.Context, projectID uuid.UUID) ([]models.ProjectPhase, error) {
	args := m.Called(ctx, projectID)
	if phases, ok := args.Get(0).([]models.ProjectPhase); ok {
		return phases, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *phaseStoreMock) Create(ctx context.Context, phase *models.ProjectPhase) error {
	args := m.Called(ctx, phase)
	return args.Error(0)
}

func (m *phaseStoreMock) Update(ctx context.Context, phase *models.ProjectPhase) error {
	args := m.Called(ctx, phase)
	return args.Error(0)
}

type absenceStoreMock struct {
	mock.Mock
}

func (m *absenceStoreMock) FindByTimeTacID(ctx context.Context, timetacID string) (*models.Absence, error) {
	args := m.Called(ctx, timetacID)
	if absence, ok := args.Get(0).(*models.Absence); ok {
		return absence, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *absenceStoreMock) ListForUserBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]models.Absence, error) {
	args := m.Called(ctx, userID, from, to)
	if absences, ok := args.Get(0).([]models.Absence); ok {
		return absences, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *absenceStoreMock) Create(ctx context.Context, absence *models.Absence) error {
	args := m.Called(ctx, absence)
	return args.Error(0)
}

func (m *absenceStoreMock) Update(ctx context.Context, absence *models.Absence) error {
	args := m.Called(ctx, absence)
	return args.Error(0)
}

type timeEntryStoreMock struct {
	mock.Mock
}

func (m *timeEntryStoreMock) Upsert(ctx context.Context, entry *models.TimeEntry) (bool, error) {
	args := m.Called(ctx, entry)
	return args.Bool(0), args.Error(1)
}

type syncLogStoreMock struct {
	mock.Mock
}

func (m *syncLogStoreMock) Create(ctx context.Context, log *models.SyncLog) error {
	args := m.Called(ctx, log)
	return args.Error(0)
}

func (m *syncLogStoreMock) MarkCompleted(ctx context.Context, id uuid.UUID, status models.SyncStatus, message string) error {
	args := m.Called(ctx, id, status, message)
	return args.Error(0)
}

func (m *syncLogStoreMock) ListRecent(ctx context.Context, limit int) ([]models.SyncLog, error) {
	args := m.Called(ctx, limit)
	if logs, ok := args.Get(0).([]models.SyncLog); ok {
		return logs, args.Error(1)
	}
	return nil, args.Error(1)
}

type mappingStoreMock struct {
	mock.Mock
}

func (m *mappingStoreMock) Find(ctx context.Context, service models.SyncService, entityType models.MappingEntityType, externalID string) (*models.IntegrationMapping, error) {
	args := m.Called(ctx, service, entityType, externalID)
	if mapping, ok := args.Get(0).(*models.IntegrationMapping); ok {
		return mapping, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mappingStoreMock) Upsert(ctx context.Context, mapping *models.IntegrationMapping) error {
	args := m.Called(ctx, mapping)
	return args.Error(0)
}

type userStoreMock struct {
	mock.Mock
}

func (m *userStoreMock) ListWithTimeTacID(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if users, ok := args.Get(0).([]models.User); ok {
		return users, args.Error(1)
	}
	return nil, args.Error(1)
}

type asanaAPIMock struct {
	mock.Mock
}

func (m *asanaAPIMock) GetProjects(ctx context.Context, workspaceID, token string) ([]asana.RemoteProject, error) {
	args := m.Called(ctx, workspaceID, token)
	if projects, ok := args.Get(0).([]asana.RemoteProject); ok {
		return projects, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *asanaAPIMock) GetSections(ctx context.Context, projectGID, token string) ([]asana.RemoteSection, error) {
	args := m.Called(ctx, projectGID, token)
	if sections, ok := args.Get(0).([]asana.RemoteSection); ok {
		return sections, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *asanaAPIMock) RefreshAccessToken(ctx context.Context, refreshToken string) (*asana.TokenResponse, error) {
	args := m.Called(ctx, refreshToken)
	if tokens, ok := args.Get(0).(*asana.TokenResponse); ok {
		return tokens, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *asanaAPIMock) UpdateSection(ctx context.Context, sectionGID, name, token string) error {
	args := m.Called(ctx, sectionGID, name, token)
	return args.Error(0)
}

func (m *asanaAPIMock) UpdateProjectCustomField(ctx context.Context, projectGID, fieldGID string, value float64, token string) error {
	args := m.Called(ctx, projectGID, fieldGID, value, token)
	return args.Error(0)
}

type timetacAPIMock struct {
	mock.Mock
}

func (m *timetacAPIMock) ValidateAPIKey(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *timetacAPIMock) GetAccount(ctx context.Context, key string) (*timetac.Account, error) {
	args := m.Called(ctx, key)
	if account, ok := args.Get(0).(*timetac.Account); ok {
		return account, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *timetacAPIMock) GetAbsences(ctx context.Context, key string, from, to time.Time) ([]timetac.RemoteAbsence, error) {
	args := m.Called(ctx, key, from, to)
	if absences, ok := args.Get(0).([]timetac.RemoteAbsence); ok {
		return absences, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *timetacAPIMock) GetTimeEntries(ctx context.Context, key string, from, to time.Time) ([]timetac.RemoteTimeEntry, error) {
	args := m.Called(ctx, key, from, to)
	if entries, ok := args.Get(0).([]timetac.RemoteTimeEntry); ok {
		return entries, args.Error(1)
	}
	return nil, args.Error(1)
}

type conflictDetectorMock struct {
	mock.Mock
}

func (m *conflictDetectorMock) DetectForAbsence(ctx context.Context, absence models.Absence) ([]models.AbsenceConflict, error) {
	args := m.Called(ctx, absence)
	if conflicts, ok := args.Get(0).([]models.AbsenceConflict); ok {
		return conflicts, args.Error(1)
	}
	return nil, args.Error(1)
}

package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/werkbank-digital/planned/pkg/context"
	"github.com/werkbank-digital/planned/pkg/crypto"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/repositories"
	"github.com/werkbank-digital/planned/pkg/timetac"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

// ErrInvalidAPIKey is returned when TimeTac rejects the supplied key. This
// is a validation failure on user input, not a sync failure; connect is the
// one integration flow allowed to fail with an error instead of a result.
var ErrInvalidAPIKey = errors.New("invalid timetac api key")

// ConnectTimeTac validates a tenant-supplied API key against TimeTac and
// stores it encrypted together with the remote account id. No sync log is
// written; connecting is setup, not a sync run.
type ConnectTimeTac struct {
	credentials repositories.CredentialsStore
	api         TimeTacAPI
	cipher      crypto.Cipher
	logger      ectologger.Logger
}

// NewConnectTimeTac creates the connect use case
func NewConnectTimeTac(credentials repositories.CredentialsStore, api TimeTacAPI, cipher crypto.Cipher, logger ectologger.Logger) *ConnectTimeTac {
	return &ConnectTimeTac{
		credentials: credentials,
		api:         api,
		cipher:      cipher,
		logger:      logger,
	}
}

// Execute validates and stores the API key for the tenant
func (u *ConnectTimeTac) Execute(ctx context.Context, tenantID uuid.UUID, apiKey string) error {
	ctx, span := tracing.StartSpan(ctx, "ConnectTimeTac.Execute")
	defer span.End()

	ctx = appctx.SetTenantID(ctx, tenantID.String())

	if err := u.api.ValidateAPIKey(ctx, apiKey); err != nil {
		if errors.Is(err, timetac.ErrInvalidAPIKey) {
			return ErrInvalidAPIKey
		}
		return fmt.Errorf("failed to validate api key: %w", err)
	}

	account, err := u.api.GetAccount(ctx, apiKey)
	if err != nil {
		return fmt.Errorf("failed to fetch timetac account: %w", err)
	}

	encrypted, err := u.cipher.Encrypt(apiKey)
	if err != nil {
		return fmt.Errorf("failed to encrypt api key: %w", err)
	}

	credentials, err := u.credentials.GetByTenant(ctx)
	if err != nil {
		if !httperror.IsHTTPError(err) || httperror.GetStatusCode(err) != http.StatusNotFound {
			return fmt.Errorf("failed to load credentials: %w", err)
		}
		// First connect for this tenant
		credentials = &models.IntegrationCredentials{TenantID: tenantID}
	}
	credentials.TimeTacAPIToken = &encrypted
	credentials.TimeTacAccountID = &account.ID

	if err := u.credentials.Upsert(ctx, credentials); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}

	u.logger.WithContext(ctx).WithFields(map[string]any{
		"tenant_id":  tenantID,
		"account_id": account.ID,
	}).Info("Connected TimeTac account")
	return nil
}

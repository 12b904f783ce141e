package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"

	"github.com/werkbank-digital/planned/pkg/asana"
	"github.com/werkbank-digital/planned/pkg/crypto"
	"github.com/werkbank-digital/planned/pkg/models"
	"github.com/werkbank-digital/planned/pkg/repositories"
)

var (
	// ErrAsanaNotConnected is returned when the tenant has no Asana tokens
	ErrAsanaNotConnected = errors.New("asana is not connected")

	// ErrTokenExpired is returned when the access token lapsed and no
	// refresh token is stored
	ErrTokenExpired = errors.New("token expired and no refresh token")

	// ErrTokenRenewal is returned when the refresh flow fails; the tenant
	// has to reconnect
	ErrTokenRenewal = errors.New("token renewal failed, please reconnect")

	// ErrNoWorkspace is returned when no Asana workspace is configured
	ErrNoWorkspace = errors.New("no asana workspace configured")
)

// credentialsMissing reports whether the error is the repository's 404 for a
// tenant that never connected any integration. Every other error from the
// credentials store is an infrastructure failure and must not be read as
// "not connected".
func credentialsMissing(err error) bool {
	return httperror.IsHTTPError(err) && httperror.GetStatusCode(err) == http.StatusNotFound
}

// asanaAccessToken yields a usable plaintext access token for the tenant.
// An expired token is refreshed through the OAuth endpoint and the new pair
// is encrypted and persisted before the token is handed back; the caller
// keeps using the returned token for the rest of its run without re-reading
// credentials.
func asanaAccessToken(
	ctx context.Context,
	credentials *models.IntegrationCredentials,
	cipher crypto.Cipher,
	api AsanaAPI,
	store repositories.CredentialsStore,
	logger ectologger.Logger,
) (string, error) {
	if !credentials.HasAsana() {
		return "", ErrAsanaNotConnected
	}

	accessToken, err := cipher.Decrypt(*credentials.AsanaAccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt access token: %w", err)
	}

	now := time.Now().UTC()
	if !credentials.AsanaTokenExpired(now) {
		return accessToken, nil
	}

	if credentials.AsanaRefreshToken == nil || *credentials.AsanaRefreshToken == "" {
		return "", ErrTokenExpired
	}

	refreshToken, err := cipher.Decrypt(*credentials.AsanaRefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt refresh token: %w", err)
	}

	tokens, err := api.RefreshAccessToken(ctx, refreshToken)
	if err != nil {
		logger.WithContext(ctx).WithError(err).Warn("Asana token refresh failed")
		return "", ErrTokenRenewal
	}

	// A missing refresh token in the response keeps the previous one valid
	newRefreshToken := refreshToken
	if tokens.RefreshToken != "" {
		newRefreshToken = tokens.RefreshToken
	}

	expiresAt := now.Add(time.Duration(tokens.ExpiresIn) * time.Second)

	encryptedAccess, err := cipher.Encrypt(tokens.AccessToken)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt access token: %w", err)
	}
	encryptedRefresh, err := cipher.Encrypt(newRefreshToken)
	if err != nil {
		return "", fmt.Errorf("failed to encrypt refresh token: %w", err)
	}

	if err := store.UpdateAsanaTokens(ctx, encryptedAccess, encryptedRefresh, expiresAt); err != nil {
		return "", fmt.Errorf("failed to persist refreshed tokens: %w", err)
	}

	logger.WithContext(ctx).Info("Refreshed Asana access token")
	return tokens.AccessToken, nil
}

// asanaFieldConfig builds the custom field extraction config from the
// tenant's stored field GIDs
func asanaFieldConfig(credentials *models.IntegrationCredentials) asana.FieldConfig {
	return asana.FieldConfig{
		NumberFieldID:         stringValue(credentials.AsanaNumberFieldID),
		SollProduktionFieldID: stringValue(credentials.AsanaSollProduktionFieldID),
		SollMontageFieldID:    stringValue(credentials.AsanaSollMontageFieldID),
		BereichFieldID:        stringValue(credentials.AsanaBereichFieldID),
		BudgetHoursFieldID:    stringValue(credentials.AsanaBudgetHoursFieldID),
	}
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

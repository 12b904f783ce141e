// Package asana is a typed client for the subset of the Asana API the
// project/phase sync needs: listing projects and sections in a workspace,
// refreshing OAuth tokens and pushing phase edits back.
package asana

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/werkbank-digital/planned/pkg/metrics"
	"github.com/werkbank-digital/planned/pkg/tracing"
)

const (
	// DefaultBaseURL is the Asana REST API root
	DefaultBaseURL = "https://app.asana.com/api/1.0"

	// DefaultTokenURL is the Asana OAuth token endpoint
	DefaultTokenURL = "https://app.asana.com/-/oauth_token"

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	projectOptFields = "name,archived,notes,custom_fields"
	sectionOptFields = "name,custom_fields"
)

var (
	// ErrUnauthorized is returned when Asana rejects the access token
	ErrUnauthorized = errors.New("asana rejected the access token")

	// ErrRefreshFailed is returned when the OAuth refresh flow fails
	ErrRefreshFailed = errors.New("asana token refresh failed")
)

// Config holds Asana client configuration
type Config struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

// Client talks to the Asana API
type Client struct {
	cfg    Config
	client *http.Client
	logger ectologger.Logger
}

// NewClient creates a new Asana client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}

// GetProjects lists all projects of a workspace, including archived ones so
// the sync can map archival to the completed status.
func (c *Client) GetProjects(ctx context.Context, workspaceID, token string) ([]RemoteProject, error) {
	ctx, span := tracing.StartSpan(ctx, "AsanaClient.GetProjects")
	defer span.End()

	query := url.Values{}
	query.Set("workspace", workspaceID)
	query.Set("opt_fields", projectOptFields)

	var envelope listEnvelope[RemoteProject]
	err := c.doJSON(ctx, http.MethodGet, "/projects?"+query.Encode(), token, nil, &envelope)
	if err != nil {
		return nil, err
	}

	c.logger.WithContext(ctx).Debugf("Fetched %d Asana projects for workspace %s", len(envelope.Data), workspaceID)
	return envelope.Data, nil
}

// GetSections lists the sections of a project in Asana's display order
func (c *Client) GetSections(ctx context.Context, projectGID, token string) ([]RemoteSection, error) {
	ctx, span := tracing.StartSpan(ctx, "AsanaClient.GetSections")
	defer span.End()

	query := url.Values{}
	query.Set("opt_fields", sectionOptFields)

	var envelope listEnvelope[RemoteSection]
	err := c.doJSON(ctx, http.MethodGet, "/projects/"+projectGID+"/sections?"+query.Encode(), token, nil, &envelope)
	if err != nil {
		return nil, err
	}

	return envelope.Data, nil
}

// UpdateSection renames a section
func (c *Client) UpdateSection(ctx context.Context, sectionGID, name, token string) error {
	ctx, span := tracing.StartSpan(ctx, "AsanaClient.UpdateSection")
	defer span.End()

	body := map[string]any{"data": map[string]any{"name": name}}
	return c.doJSON(ctx, http.MethodPut, "/sections/"+sectionGID, token, body, nil)
}

// UpdateProjectCustomField writes a numeric custom field value on a project
func (c *Client) UpdateProjectCustomField(ctx context.Context, projectGID, fieldGID string, value float64, token string) error {
	ctx, span := tracing.StartSpan(ctx, "AsanaClient.UpdateProjectCustomField")
	defer span.End()

	body := map[string]any{
		"data": map[string]any{
			"custom_fields": map[string]any{fieldGID: value},
		},
	}
	return c.doJSON(ctx, http.MethodPut, "/projects/"+projectGID, token, body, nil)
}

// RefreshAccessToken exchanges a refresh token for a new access token
func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	ctx, span := tracing.StartSpan(ctx, "AsanaClient.RefreshAccessToken")
	defer span.End()

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("refresh_token", refreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, bytes.NewBufferString(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.HTTPRequestDuration.WithLabelValues("asana", http.MethodPost).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.HTTPRequestsTotal.WithLabelValues("asana", http.MethodPost, "error").Inc()
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	defer resp.Body.Close()
	metrics.HTTPRequestsTotal.WithLabelValues("asana", http.MethodPost, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.WithContext(ctx).Warnf("Asana token refresh returned %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: status %d", ErrRefreshFailed, resp.StatusCode)
	}

	var tokens TokenResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRefreshFailed, err)
	}
	if tokens.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token in response", ErrRefreshFailed)
	}

	return &tokens, nil
}

// doJSON executes one authenticated API request and decodes the response
// into out when out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, path, token string, body any, out any) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.HTTPRequestDuration.WithLabelValues("asana", method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.HTTPRequestsTotal.WithLabelValues("asana", method, "error").Inc()
		c.logger.WithContext(ctx).WithError(err).Errorf("Asana request failed: %s %s", method, path)
		return fmt.Errorf("asana request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.HTTPRequestsTotal.WithLabelValues("asana", method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("asana: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(out)
}

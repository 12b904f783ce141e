// Package timetac is a typed client for the TimeTac user API. TimeTac
// authenticates with a static long-lived API key per account, so every call
// takes the decrypted key explicitly instead of holding credential state.
package timetac

import (
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
	// DefaultBaseURL is the TimeTac user API root
	DefaultBaseURL = "https://go.timetac.com/userapi/v3"

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// DateFormat is the calendar-day format TimeTac uses in queries and rows
	DateFormat = "2006-01-02"
)

// ErrInvalidAPIKey is returned when TimeTac rejects the API key
var ErrInvalidAPIKey = errors.New("timetac rejected the api key")

// Config holds TimeTac client configuration
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client talks to the TimeTac API
type Client struct {
	cfg    Config
	client *http.Client
	logger ectologger.Logger
}

// NewClient creates a new TimeTac client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
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

// ValidateAPIKey checks whether the key is accepted by TimeTac. An invalid
// key returns ErrInvalidAPIKey, any other failure the underlying error.
func (c *Client) ValidateAPIKey(ctx context.Context, key string) error {
	ctx, span := tracing.StartSpan(ctx, "TimeTacClient.ValidateAPIKey")
	defer span.End()

	var envelope accountEnvelope
	return c.doJSON(ctx, "/account", key, nil, &envelope)
}

// GetAccount fetches the account the key belongs to
func (c *Client) GetAccount(ctx context.Context, key string) (*Account, error) {
	ctx, span := tracing.StartSpan(ctx, "TimeTacClient.GetAccount")
	defer span.End()

	var envelope accountEnvelope
	if err := c.doJSON(ctx, "/account", key, nil, &envelope); err != nil {
		return nil, err
	}

	return &envelope.Data, nil
}

// GetAbsences lists absences overlapping the given date range, both bounds
// inclusive.
func (c *Client) GetAbsences(ctx context.Context, key string, from, to time.Time) ([]RemoteAbsence, error) {
	ctx, span := tracing.StartSpan(ctx, "TimeTacClient.GetAbsences")
	defer span.End()

	query := url.Values{}
	query.Set("from_date", from.Format(DateFormat))
	query.Set("to_date", to.Format(DateFormat))

	var envelope listEnvelope[RemoteAbsence]
	if err := c.doJSON(ctx, "/absences?"+query.Encode(), key, nil, &envelope); err != nil {
		return nil, err
	}

	c.logger.WithContext(ctx).Debugf("Fetched %d TimeTac absences between %s and %s",
		len(envelope.Data), from.Format(DateFormat), to.Format(DateFormat))
	return envelope.Data, nil
}

// GetTimeEntries lists booked time entries within the given date range
func (c *Client) GetTimeEntries(ctx context.Context, key string, from, to time.Time) ([]RemoteTimeEntry, error) {
	ctx, span := tracing.StartSpan(ctx, "TimeTacClient.GetTimeEntries")
	defer span.End()

	query := url.Values{}
	query.Set("from_date", from.Format(DateFormat))
	query.Set("to_date", to.Format(DateFormat))

	var envelope listEnvelope[RemoteTimeEntry]
	if err := c.doJSON(ctx, "/timeTrackings?"+query.Encode(), key, nil, &envelope); err != nil {
		return nil, err
	}

	return envelope.Data, nil
}

func (c *Client) doJSON(ctx context.Context, path, key string, body io.Reader, out any) error {
	method := http.MethodGet
	if body != nil {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+key)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.client.Do(req)
	metrics.HTTPRequestDuration.WithLabelValues("timetac", method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.HTTPRequestsTotal.WithLabelValues("timetac", method, "error").Inc()
		c.logger.WithContext(ctx).WithError(err).Errorf("TimeTac request failed: %s %s", method, path)
		return fmt.Errorf("timetac request failed: %w", err)
	}
	defer resp.Body.Close()
	metrics.HTTPRequestsTotal.WithLabelValues("timetac", method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrInvalidAPIKey
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("timetac: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(out)
}

// Package graph implements the directory/security API client. Each report
// fetch authenticates independently with the tenant's app credentials and
// issues a read-only call; failures are mapped onto the upstream error
// taxonomy and never retried here.
package graph

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/cloudsentry/posture/internal/config"
	"github.com/cloudsentry/posture/internal/domain/models"
	"github.com/cloudsentry/posture/internal/domain/service"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
)

// Client talks to the external directory/security API.
type Client struct {
	baseURL    string
	loginURL   string
	scope      string
	httpClient *http.Client
	logger     logger.Logger
}

// NewClient creates a directory API client with a bounded per-request timeout.
func NewClient(cfg *config.GraphConfig, log logger.Logger) *Client {
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		loginURL: strings.TrimRight(cfg.LoginURL, "/"),
		scope:    cfg.Scope,
		httpClient: &http.Client{
			Timeout: cfg.TimeoutDuration(),
		},
		logger: log.WithComponent("graph-client"),
	}
}

var _ service.DirectoryClient = (*Client)(nil)

// FetchLicenseReport retrieves the subscribed SKU report and derives seat
// utilization.
func (c *Client) FetchLicenseReport(ctx context.Context, tenantID, clientID, clientSecret string) (*models.LicenseReport, error) {
	token, err := c.acquireToken(ctx, tenantID, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Value []struct {
			SKUID         string `json:"skuId"`
			SKUPartNumber string `json:"skuPartNumber"`
			ConsumedUnits int    `json:"consumedUnits"`
			PrepaidUnits  struct {
				Enabled int `json:"enabled"`
			} `json:"prepaidUnits"`
		} `json:"value"`
	}
	if err := c.get(ctx, tenantID, token, "/v1.0/subscribedSkus", "subscribedSkus", &payload); err != nil {
		return nil, err
	}

	report := &models.LicenseReport{
		LicenseDetails: make([]models.LicenseDetail, 0, len(payload.Value)),
	}
	for _, sku := range payload.Value {
		report.TotalLicenses += sku.PrepaidUnits.Enabled
		report.AssignedLicenses += sku.ConsumedUnits
		report.LicenseDetails = append(report.LicenseDetails, models.LicenseDetail{
			SKUPartNumber: sku.SKUPartNumber,
			SKUID:         sku.SKUID,
			Total:         sku.PrepaidUnits.Enabled,
			Assigned:      sku.ConsumedUnits,
		})
	}
	report.ComputeUtilization()

	c.logger.Debug(ctx, "License report fetched",
		logger.String("tenant_id", tenantID),
		logger.Int("total_licenses", report.TotalLicenses),
		logger.Int("assigned_licenses", report.AssignedLicenses),
	)
	return report, nil
}

// FetchSecureScore retrieves the most recent secure score snapshot with its
// per-control breakdown.
func (c *Client) FetchSecureScore(ctx context.Context, tenantID, clientID, clientSecret string) (*models.SecureScoreReport, error) {
	token, err := c.acquireToken(ctx, tenantID, clientID, clientSecret)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Value []struct {
			CurrentScore  float64 `json:"currentScore"`
			MaxScore      float64 `json:"maxScore"`
			ControlScores []struct {
				ControlCategory      string `json:"controlCategory"`
				ControlName          string `json:"controlName"`
				ImplementationStatus string `json:"implementationStatus"`
			} `json:"controlScores"`
		} `json:"value"`
	}
	if err := c.get(ctx, tenantID, token, "/v1.0/security/secureScores?$top=1", "secureScores", &payload); err != nil {
		return nil, err
	}
	if len(payload.Value) == 0 {
		return nil, errors.ErrNotAvailable(tenantID, "secureScores")
	}

	latest := payload.Value[0]
	report := &models.SecureScoreReport{
		CurrentScore:  latest.CurrentScore,
		MaxScore:      latest.MaxScore,
		ControlScores: make([]models.ControlScore, 0, len(latest.ControlScores)),
	}
	for _, cs := range latest.ControlScores {
		report.ControlScores = append(report.ControlScores, models.ControlScore{
			Category:             cs.ControlCategory,
			ControlName:          cs.ControlName,
			ImplementationStatus: cs.ImplementationStatus,
		})
	}
	report.ComputePercentage()

	c.logger.Debug(ctx, "Secure score fetched",
		logger.String("tenant_id", tenantID),
		logger.Float64("percentage", report.Percentage),
	)
	return report, nil
}

// acquireToken performs the client-credentials exchange for one tenant.
func (c *Client) acquireToken(ctx context.Context, tenantID, clientID, clientSecret string) (string, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", clientID)
	form.Set("client_secret", clientSecret)
	form.Set("scope", c.scope)

	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", c.loginURL, tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", errors.ErrUpstreamError(tenantID, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Timeouts are treated the same as any other upstream failure.
		return "", errors.ErrUpstreamError(tenantID, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusOK {
		c.logger.Warn(ctx, "Token exchange rejected",
			logger.String("tenant_id", tenantID),
			logger.Int("status", resp.StatusCode),
		)
		return "", errors.ErrAuthenticationFailed(tenantID).
			WithDetail("status", fmt.Sprintf("%d", resp.StatusCode)).
			WithDetail("upstream_error", tokenErrorCode(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil || tokenResp.AccessToken == "" {
		return "", errors.ErrAuthenticationFailed(tenantID).WithDetail("reason", "malformed token response")
	}
	return tokenResp.AccessToken, nil
}

// get issues an authenticated read and decodes the response, mapping HTTP
// status codes onto the upstream taxonomy.
func (c *Client) get(ctx context.Context, tenantID, token, path, resource string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return errors.ErrUpstreamError(tenantID, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.ErrUpstreamError(tenantID, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return errors.ErrAuthenticationFailed(tenantID)
	case http.StatusForbidden:
		return errors.ErrInsufficientPermissions(tenantID, resource)
	case http.StatusNotFound:
		return errors.ErrNotAvailable(tenantID, resource)
	default:
		return errors.ErrUpstreamError(tenantID,
			fmt.Errorf("%s returned status %d", resource, resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.ErrUpstreamError(tenantID, err)
	}
	return nil
}

func tokenErrorCode(body []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &e) == nil && e.Error != "" {
		return e.Error
	}
	return "unknown"
}

package graph

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudsentry/posture/internal/config"
	"github.com/cloudsentry/posture/pkg/errors"
	"github.com/cloudsentry/posture/pkg/logger"
)

type fakeGraph struct {
	tokenStatus  int
	skusStatus   int
	scoresStatus int
	skusBody     string
	scoresBody   string
	tokenCalls   int
}

func (f *fakeGraph) server() *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/tenant-1/oauth2/v2.0/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls++
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil || r.PostForm.Get("grant_type") != "client_credentials" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"unsupported_grant_type"}`))
			return
		}
		if f.tokenStatus != 0 && f.tokenStatus != http.StatusOK {
			w.WriteHeader(f.tokenStatus)
			w.Write([]byte(`{"error":"invalid_client"}`))
			return
		}
		w.Write([]byte(`{"access_token":"test-token","expires_in":3599}`))
	})
	mux.HandleFunc("/v1.0/subscribedSkus", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if f.skusStatus != 0 && f.skusStatus != http.StatusOK {
			w.WriteHeader(f.skusStatus)
			return
		}
		w.Write([]byte(f.skusBody))
	})
	mux.HandleFunc("/v1.0/security/secureScores", func(w http.ResponseWriter, r *http.Request) {
		if f.scoresStatus != 0 && f.scoresStatus != http.StatusOK {
			w.WriteHeader(f.scoresStatus)
			return
		}
		w.Write([]byte(f.scoresBody))
	})
	return httptest.NewServer(mux)
}

func newTestClient(serverURL string) *Client {
	return NewClient(&config.GraphConfig{
		BaseURL:  serverURL,
		LoginURL: serverURL,
		Scope:    "https://example.test/.default",
		Timeout:  5,
	}, logger.NewNoopLogger())
}

func TestFetchLicenseReport_Success(t *testing.T) {
	f := &fakeGraph{skusBody: `{"value":[
		{"skuId":"sku-1","skuPartNumber":"ENTERPRISEPACK","consumedUnits":45,"prepaidUnits":{"enabled":100}},
		{"skuId":"sku-2","skuPartNumber":"EMS_E5","consumedUnits":10,"prepaidUnits":{"enabled":20}}
	]}`}
	srv := f.server()
	defer srv.Close()

	report, err := newTestClient(srv.URL).FetchLicenseReport(context.Background(), "tenant-1", "client-1", "secret")

	require.NoError(t, err)
	assert.Equal(t, 120, report.TotalLicenses)
	assert.Equal(t, 55, report.AssignedLicenses)
	assert.InDelta(t, 45.83, report.UtilizationRate, 0.01)
	require.Len(t, report.LicenseDetails, 2)
	assert.Equal(t, "ENTERPRISEPACK", report.LicenseDetails[0].SKUPartNumber)
}

func TestFetchSecureScore_Success(t *testing.T) {
	f := &fakeGraph{scoresBody: `{"value":[{
		"currentScore":42.5,"maxScore":85,
		"controlScores":[
			{"controlCategory":"Identity","controlName":"MFA","implementationStatus":"Not Implemented"}
		]
	}]}`}
	srv := f.server()
	defer srv.Close()

	report, err := newTestClient(srv.URL).FetchSecureScore(context.Background(), "tenant-1", "client-1", "secret")

	require.NoError(t, err)
	assert.Equal(t, 42.5, report.CurrentScore)
	assert.Equal(t, 50.0, report.Percentage)
	require.Len(t, report.ControlScores, 1)
	assert.Equal(t, "Identity", report.ControlScores[0].Category)
}

func TestFetchSecureScore_EmptySnapshotNotAvailable(t *testing.T) {
	f := &fakeGraph{scoresBody: `{"value":[]}`}
	srv := f.server()
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchSecureScore(context.Background(), "tenant-1", "client-1", "secret")

	require.Error(t, err)
	assert.Equal(t, errors.CodeNotAvailable, errors.CodeOf(err))
}

func TestAcquireToken_RejectionMapsToAuthenticationFailed(t *testing.T) {
	f := &fakeGraph{tokenStatus: http.StatusUnauthorized}
	srv := f.server()
	defer srv.Close()

	_, err := newTestClient(srv.URL).FetchLicenseReport(context.Background(), "tenant-1", "client-1", "bad")

	require.Error(t, err)
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, errors.CodeAuthenticationFailed, appErr.Code)
	assert.Equal(t, "invalid_client", appErr.Details["upstream_error"])
}

func TestFetch_StatusCodeMapping(t *testing.T) {
	cases := []struct {
		status int
		want   errors.Code
	}{
		{status: http.StatusUnauthorized, want: errors.CodeAuthenticationFailed},
		{status: http.StatusForbidden, want: errors.CodeInsufficientPermissions},
		{status: http.StatusNotFound, want: errors.CodeNotAvailable},
		{status: http.StatusInternalServerError, want: errors.CodeUpstreamError},
		{status: http.StatusTooManyRequests, want: errors.CodeUpstreamError},
	}
	for _, tc := range cases {
		f := &fakeGraph{scoresStatus: tc.status}
		srv := f.server()

		_, err := newTestClient(srv.URL).FetchSecureScore(context.Background(), "tenant-1", "client-1", "secret")

		require.Errorf(t, err, "status %d", tc.status)
		assert.Equalf(t, tc.want, errors.CodeOf(err), "status %d", tc.status)
		srv.Close()
	}
}

func TestFetch_UnreachableHostIsUpstreamError(t *testing.T) {
	// Closed server: connection refused.
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := newTestClient(srv.URL).FetchLicenseReport(context.Background(), "tenant-1", "client-1", "secret")

	require.Error(t, err)
	assert.Equal(t, errors.CodeUpstreamError, errors.CodeOf(err))
}

func TestFetches_AuthenticateIndependently(t *testing.T) {
	f := &fakeGraph{
		skusBody:   `{"value":[]}`,
		scoresBody: `{"value":[{"currentScore":10,"maxScore":100,"controlScores":[]}]}`,
	}
	srv := f.server()
	defer srv.Close()

	client := newTestClient(srv.URL)
	_, err := client.FetchLicenseReport(context.Background(), "tenant-1", "client-1", "secret")
	require.NoError(t, err)
	_, err = client.FetchSecureScore(context.Background(), "tenant-1", "client-1", "secret")
	require.NoError(t, err)

	// One token exchange per report fetch; no shared token state.
	assert.Equal(t, 2, f.tokenCalls)
}

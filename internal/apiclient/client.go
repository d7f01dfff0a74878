package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tyemirov/decora/internal/identity"
	"go.uber.org/zap"
)

// maxPrimaryAttempts bounds the number of requests one logical call may
// issue against its primary endpoint: the original attempt, one after a
// forced token refresh, and one after profile auto-registration or a
// registration race. The loop below enforces the bound explicitly so
// termination never depends on call-stack depth.
const maxPrimaryAttempts = 3

// defaultSettleDelay lets a concurrently-created backend record become
// visible before the original call is retried.
const defaultSettleDelay = 500 * time.Millisecond

// defaultRegisterEndpoint is the profile-creation path. The backend
// guarantees registration is idempotent per identity.
const defaultRegisterEndpoint = "/register"

// Config configures a Client.
type Config struct {
	BaseURL          string
	Identity         identity.Provider
	HTTPClient       *http.Client
	Logger           *zap.Logger
	Metrics          MetricsRecorder
	SettleDelay      time.Duration
	RegisterEndpoint string
}

// Client performs backend calls with bearer authentication, recovering
// transparently from a stale token (one forced refresh) and from a
// missing user profile (one automatic registration, plus one settle
// retry when registration loses a race). Everything else surfaces as a
// classified CallError.
type Client struct {
	baseURL          string
	identity         identity.Provider
	httpClient       *http.Client
	logger           *zap.Logger
	metrics          MetricsRecorder
	settleDelay      time.Duration
	registerEndpoint string
}

// New constructs a Client after validating the supplied configuration.
func New(configuration Config) (*Client, error) {
	if strings.TrimSpace(configuration.BaseURL) == "" {
		return nil, fmt.Errorf("apiclient.new: %w", ErrMissingBaseURL)
	}
	if configuration.Identity == nil {
		return nil, fmt.Errorf("apiclient.new: %w", ErrMissingIdentity)
	}
	httpClient := configuration.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics := configuration.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}
	settleDelay := configuration.SettleDelay
	if settleDelay <= 0 {
		settleDelay = defaultSettleDelay
	}
	registerEndpoint := configuration.RegisterEndpoint
	if strings.TrimSpace(registerEndpoint) == "" {
		registerEndpoint = defaultRegisterEndpoint
	}
	return &Client{
		baseURL:          strings.TrimRight(configuration.BaseURL, "/"),
		identity:         configuration.Identity,
		httpClient:       httpClient,
		logger:           logger,
		metrics:          metrics,
		settleDelay:      settleDelay,
		registerEndpoint: registerEndpoint,
	}, nil
}

var allowedMethods = map[string]bool{
	http.MethodGet:    true,
	http.MethodPost:   true,
	http.MethodPut:    true,
	http.MethodDelete: true,
}

// Call issues one logical backend call and returns the response JSON.
// body is serialized for non-GET methods only. The retry chain is
// strictly sequential and honors ctx cancellation at every step,
// including the settle delay.
func (client *Client) Call(ctx context.Context, method string, endpoint string, body any) (json.RawMessage, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, &CallError{Kind: ErrValidation, Endpoint: endpoint, Message: "endpoint must not be empty"}
	}
	if !allowedMethods[method] {
		return nil, &CallError{Kind: ErrValidation, Endpoint: endpoint, Message: fmt.Sprintf("unsupported method %q", method)}
	}

	forceRefreshNext := false
	usedAuthRetry := false
	usedRaceRetry := false

	for attempt := 0; attempt < maxPrimaryAttempts; attempt++ {
		token, tokenErr := client.identity.Token(ctx, forceRefreshNext)
		if tokenErr != nil {
			client.metrics.Increment(MetricTerminalAuthFailed)
			return nil, &CallError{Kind: ErrAuthenticationFailed, Endpoint: endpoint, Message: fmt.Sprintf("token acquisition failed: %v", tokenErr)}
		}
		forceRefreshNext = false

		statusCode, statusText, responseBody, requestErr := client.doRequest(ctx, method, endpoint, body, token)
		if requestErr != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("apiclient.call: %w", ctx.Err())
			}
			return nil, &CallError{Kind: ErrServerError, Endpoint: endpoint, Message: fmt.Sprintf("request failed: %v", requestErr)}
		}

		if statusCode >= 200 && statusCode < 300 {
			document, decodeErr := decodeSuccessBody(responseBody)
			if decodeErr != nil {
				return nil, &CallError{Kind: ErrInvalidResponseFormat, StatusCode: statusCode, Endpoint: endpoint, Message: "response body is not valid JSON"}
			}
			return document, nil
		}

		message, errorCode := decodeErrorBody(statusCode, statusText, responseBody)

		if statusCode == http.StatusUnauthorized {
			if token != "" && attempt == 0 && !usedAuthRetry {
				usedAuthRetry = true
				forceRefreshNext = true
				client.metrics.Increment(MetricTokenRefresh)
				client.logger.Info("retrying after forced token refresh",
					zap.String("code", "apiclient.retry_after_refresh"),
					zap.String("endpoint", endpoint))
				continue
			}
			client.metrics.Increment(MetricTerminalAuthFailed)
			return nil, &CallError{Kind: ErrAuthenticationFailed, StatusCode: statusCode, Endpoint: endpoint, Message: message}
		}

		if isProfileMissing(errorCode, message) && endpoint != client.registerEndpoint {
			subject, authenticated := client.identity.Current(ctx)
			if !authenticated {
				return nil, &CallError{Kind: ErrProfileRequired, StatusCode: statusCode, Endpoint: endpoint, Message: message, RegistrationDetail: "no authenticated identity to register"}
			}
			if attempt >= maxPrimaryAttempts-1 {
				client.metrics.Increment(MetricTerminalProfile)
				return nil, &CallError{Kind: ErrProfileRequired, StatusCode: statusCode, Endpoint: endpoint, Message: message, RegistrationDetail: "retry budget exhausted"}
			}

			refreshedToken, refreshErr := client.identity.Token(ctx, true)
			if refreshErr != nil {
				client.metrics.Increment(MetricTerminalAuthFailed)
				return nil, &CallError{Kind: ErrAuthenticationFailed, Endpoint: endpoint, Message: fmt.Sprintf("token refresh failed: %v", refreshErr)}
			}
			client.metrics.Increment(MetricTokenRefresh)

			outcome, registrationDetail, registrationErr := client.registerProfile(ctx, *subject, refreshedToken)
			if registrationErr != nil {
				if ctx.Err() != nil {
					return nil, fmt.Errorf("apiclient.call: %w", ctx.Err())
				}
				if errors.Is(registrationErr, ErrValidation) {
					return nil, &CallError{Kind: ErrValidation, Endpoint: endpoint, Message: "cannot register an empty profile name"}
				}
				return nil, &CallError{Kind: ErrProfileRequired, StatusCode: statusCode, Endpoint: endpoint, Message: message, RegistrationDetail: registrationErr.Error()}
			}

			switch outcome {
			case registrationSucceeded:
				client.metrics.Increment(MetricAutoRegistration)
				client.logger.Info("profile auto-registered, retrying original call",
					zap.String("code", "apiclient.retry_after_registration"),
					zap.String("endpoint", endpoint))
				continue

			case registrationLostRace:
				if usedRaceRetry {
					client.metrics.Increment(MetricTerminalProfile)
					return nil, &CallError{Kind: ErrProfileRequired, StatusCode: statusCode, Endpoint: endpoint, Message: message, RegistrationDetail: registrationDetail}
				}
				usedRaceRetry = true
				if _, raceRefreshErr := client.identity.Token(ctx, true); raceRefreshErr != nil {
					client.metrics.Increment(MetricTerminalAuthFailed)
					return nil, &CallError{Kind: ErrAuthenticationFailed, Endpoint: endpoint, Message: fmt.Sprintf("token refresh failed: %v", raceRefreshErr)}
				}
				client.metrics.Increment(MetricRegistrationRace)
				client.logger.Info("registration lost a race, waiting for backend to settle",
					zap.String("code", "apiclient.registration_race"),
					zap.String("endpoint", endpoint),
					zap.Duration("settle_delay", client.settleDelay))
				if settleErr := client.settle(ctx); settleErr != nil {
					return nil, fmt.Errorf("apiclient.call: %w", settleErr)
				}
				continue

			default:
				client.metrics.Increment(MetricTerminalProfile)
				return nil, &CallError{Kind: ErrProfileRequired, StatusCode: statusCode, Endpoint: endpoint, Message: message, RegistrationDetail: registrationDetail}
			}
		}

		if statusCode >= 500 {
			return nil, &CallError{Kind: ErrServerError, StatusCode: statusCode, Endpoint: endpoint, Message: message}
		}
		return nil, &CallError{Kind: ErrBadResponse, StatusCode: statusCode, Endpoint: endpoint, Message: message}
	}

	client.metrics.Increment(MetricTerminalProfile)
	return nil, &CallError{Kind: ErrProfileRequired, Endpoint: endpoint, Message: "retry budget exhausted"}
}

// doRequest issues a single HTTP request. It never retries.
func (client *Client) doRequest(ctx context.Context, method string, endpoint string, body any, token string) (int, string, []byte, error) {
	var payload io.Reader
	if body != nil && method != http.MethodGet {
		encoded, marshalErr := json.Marshal(body)
		if marshalErr != nil {
			return 0, "", nil, fmt.Errorf("apiclient.encode_body: %w", marshalErr)
		}
		payload = bytes.NewReader(encoded)
	}

	request, requestErr := http.NewRequestWithContext(ctx, method, client.baseURL+endpoint, payload)
	if requestErr != nil {
		return 0, "", nil, fmt.Errorf("apiclient.build_request: %w", requestErr)
	}
	request.Header.Set("Content-Type", "application/json")
	if token != "" {
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, doErr := client.httpClient.Do(request)
	if doErr != nil {
		return 0, "", nil, fmt.Errorf("apiclient.request: %w", doErr)
	}
	defer func() { _ = response.Body.Close() }()

	responseBody, readErr := io.ReadAll(response.Body)
	if readErr != nil {
		return 0, "", nil, fmt.Errorf("apiclient.read_body: %w", readErr)
	}
	return response.StatusCode, response.Status, responseBody, nil
}

// settle waits for the configured settle delay, aborting on cancellation.
func (client *Client) settle(ctx context.Context) error {
	timer := time.NewTimer(client.settleDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

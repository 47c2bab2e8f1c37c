// Package labapi is the HTTP client for the lab API that owns samples,
// slides and batches.
package labapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const DefaultTimeout = 10 * time.Second

// ErrUnauthorized is wrapped by a StatusError for 401 responses. The
// operator's session has expired and must be renewed.
var ErrUnauthorized = errors.New("lab api: unauthorized")

// StatusError reports a non-2xx answer from the lab API.
type StatusError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d, body: %s", e.Operation, e.StatusCode, e.Body)
}

func (e *StatusError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithRateLimit paces outgoing requests. A non-positive rps disables pacing.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func NewClient(baseURL, token string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithToken returns a client that authenticates as the given operator. The
// HTTP client and rate limiter are shared with c.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

type CreateSampleRequest struct {
	SampleID string `json:"sample_id"`
}

// CreateSampleResponse may carry an application-level error next to (or
// instead of) the sample id.
type CreateSampleResponse struct {
	SampleID string `json:"sample_id,omitempty"`
	Error    string `json:"error,omitempty"`
	Details  string `json:"details,omitempty"`
}

func (r *CreateSampleResponse) ApplicationError() (string, bool) {
	return applicationError(r.Error, r.Details)
}

type CreateSlideRequest struct {
	SlideID string `json:"slide_id"`
}

type CreateSlideResponse struct {
	SlideID  string `json:"slide_id"`
	SampleID string `json:"sample_id"`
}

type CreateBatchRequest struct {
	SampleIDs []string `json:"sample_ids"`
}

type CreateBatchResponse struct {
	BatchID    string `json:"batch_id,omitempty"`
	SlideCount int    `json:"slide_count,omitempty"`
	Error      string `json:"error,omitempty"`
	Details    string `json:"details,omitempty"`
}

func (r *CreateBatchResponse) ApplicationError() (string, bool) {
	return applicationError(r.Error, r.Details)
}

func applicationError(errMsg, details string) (string, bool) {
	if errMsg == "" {
		return "", false
	}
	if details == "" || details == errMsg {
		return errMsg, true
	}
	return errMsg + ": " + details, true
}

// CreateSample registers a sample under its barcode.
// POST /samples
func (c *Client) CreateSample(ctx context.Context, barcode string) (*CreateSampleResponse, error) {
	logrus.WithField("barcode", barcode).Info("creating sample")

	var result CreateSampleResponse
	if err := c.post(ctx, "create sample", "/samples", CreateSampleRequest{SampleID: barcode}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateSlide registers a slide under an existing sample.
// POST /samples/{sampleId}/slides
func (c *Client) CreateSlide(ctx context.Context, sampleID, barcode string) (*CreateSlideResponse, error) {
	logrus.WithFields(logrus.Fields{"sample_id": sampleID, "barcode": barcode}).Info("creating slide")

	path := "/samples/" + url.PathEscape(sampleID) + "/slides"
	var result CreateSlideResponse
	if err := c.post(ctx, "create slide", path, CreateSlideRequest{SlideID: barcode}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateBatch groups already-created samples.
// POST /batches
func (c *Client) CreateBatch(ctx context.Context, sampleIDs []string) (*CreateBatchResponse, error) {
	logrus.WithField("sample_ids", sampleIDs).Infof("creating batch with %d samples", len(sampleIDs))

	var result CreateBatchResponse
	if err := c.post(ctx, "create batch", "/batches", CreateBatchRequest{SampleIDs: sampleIDs}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) post(ctx context.Context, operation, path string, body interface{}, out interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s: rate limiter: %w", operation, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s: failed to execute request: %w", operation, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: failed to read response body: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized {
			logrus.WithField("operation", operation).Warn("lab api rejected credentials, session must be renewed")
		}
		return &StatusError{Operation: operation, StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w, body: %s", operation, err, string(respBody))
	}
	return nil
}

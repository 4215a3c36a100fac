package veo

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

	"veogen-api/internal/auth"
	"veogen-api/internal/generation"
	"veogen-api/internal/media"
)

// Static errors for Veo client operations.
var (
	// ErrCredentialsRequired is returned when no credential provider is given.
	ErrCredentialsRequired = errors.New("veo: credential provider is required")
	// ErrOperationNameRequired is returned when the operation name is not provided.
	ErrOperationNameRequired = errors.New("veo: operation name is required")
	// ErrNoOperationName is returned when the submit response contains no operation name.
	ErrNoOperationName = errors.New("veo: submit failed: no operation name returned")
	// ErrDownloadURIRequired is returned when the download URI is not provided.
	ErrDownloadURIRequired = errors.New("veo: download URI is required")
)

// Client defines the interface for interacting with the Veo API.
type Client interface {
	// Submit sends a generation request and returns the created operation.
	Submit(ctx context.Context, req *generation.Request) (Operation, error)

	// Operation queries the current state of an operation by name.
	Operation(ctx context.Context, name string) (Operation, error)

	// Download opens the binary asset behind a result URI. The caller
	// must close the returned reader.
	Download(ctx context.Context, uri string) (io.ReadCloser, error)
}

// HTTPClient is the HTTP implementation of the Veo Client interface.
type HTTPClient struct {
	creds          auth.Provider
	baseURL        string
	httpClient     *http.Client
	downloadClient *http.Client
	maxRetries     int
	baseBackoff    time.Duration
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithBaseURL sets a custom base URL for the Veo API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = strings.TrimRight(url, "/")
	}
}

// WithHTTPClient sets a custom HTTP client for API calls.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithDownloadClient sets a custom HTTP client for asset downloads.
func WithDownloadClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.downloadClient = c
	}
}

// WithMaxRetries sets the maximum number of retries for transient failures.
func WithMaxRetries(n int) ClientOption {
	return func(hc *HTTPClient) {
		hc.maxRetries = n
	}
}

// WithBaseBackoff sets the initial backoff duration for retries.
func WithBaseBackoff(d time.Duration) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseBackoff = d
	}
}

// NewClient creates a new Veo HTTP client. The credential provider is
// consulted on every request so a reselected key takes effect without
// rebuilding the client.
func NewClient(creds auth.Provider, opts ...ClientOption) (*HTTPClient, error) {
	if creds == nil {
		return nil, ErrCredentialsRequired
	}

	c := &HTTPClient{
		creds:          creds,
		baseURL:        "https://generativelanguage.googleapis.com/v1beta",
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		downloadClient: &http.Client{Timeout: 10 * time.Minute},
		maxRetries:     3,
		baseBackoff:    1 * time.Second,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Submit sends a generation request to the predictLongRunning endpoint
// and returns the created operation.
func (c *HTTPClient) Submit(ctx context.Context, req *generation.Request) (Operation, error) {
	body, err := buildPredictRequest(req)
	if err != nil {
		return Operation{}, err
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return Operation{}, fmt.Errorf("veo: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:predictLongRunning", c.baseURL, req.Model)

	var resp operationResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, url, bodyBytes, &resp); err != nil {
		return Operation{}, err
	}

	if resp.Name == "" {
		return Operation{}, ErrNoOperationName
	}

	return resp.toOperation(), nil
}

// Operation queries the current state of an operation by name.
func (c *HTTPClient) Operation(ctx context.Context, name string) (Operation, error) {
	if name == "" {
		return Operation{}, ErrOperationNameRequired
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, strings.TrimLeft(name, "/"))

	var resp operationResponse
	if err := c.doRequestWithRetry(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return Operation{}, err
	}

	return resp.toOperation(), nil
}

// Download opens the binary asset behind a result URI. The key travels as
// a query parameter because result URIs point at the file service, which
// does not accept header credentials. A non-success response is returned
// as a TransportError carrying the body best-effort.
func (c *HTTPClient) Download(ctx context.Context, uri string) (io.ReadCloser, error) {
	if uri == "" {
		return nil, ErrDownloadURIRequired
	}

	key, err := c.creds.APIKey()
	if err != nil {
		return nil, err
	}

	sep := "?"
	if strings.Contains(uri, "?") {
		sep = "&"
	}
	url := uri + sep + "key=" + key

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("veo: create download request: %w", err)
	}

	resp, err := c.downloadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("veo: download request failed: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body := readBodyForDiagnostics(resp.Body)
		_ = resp.Body.Close()
		return nil, &TransportError{StatusCode: resp.StatusCode, Body: body}
	}

	return resp.Body, nil
}

// buildPredictRequest maps a generation request onto the wire format,
// encoding the media assets it references.
func buildPredictRequest(req *generation.Request) (*predictRequest, error) {
	inst := instancePayload{Prompt: req.Prompt}

	switch req.Mode {
	case generation.ModeImageToVideo:
		img, err := encodePayload(req.Image)
		if err != nil {
			return nil, err
		}
		inst.Image = img

	case generation.ModeFramesToVideo:
		start, err := encodePayload(req.StartFrame)
		if err != nil {
			return nil, err
		}
		inst.Image = start
		if req.EndFrame != nil {
			last, err := encodePayload(req.EndFrame)
			if err != nil {
				return nil, err
			}
			inst.LastFrame = last
		}

	case generation.ModeReferencesToVideo:
		for _, ref := range req.References {
			img, err := encodePayload(ref.Image)
			if err != nil {
				return nil, err
			}
			inst.ReferenceImages = append(inst.ReferenceImages, referencePayload{
				Image:         *img,
				ReferenceType: string(ref.Role),
			})
		}

	case generation.ModeExtendVideo:
		inst.Video = &mediaPayload{URI: req.SourceVideoURI}
	}

	return &predictRequest{
		Instances: []instancePayload{inst},
		Parameters: parametersPayload{
			AspectRatio: req.AspectRatio,
			Resolution:  req.Resolution,
		},
	}, nil
}

// encodePayload converts an asset to its wire form.
func encodePayload(a *media.Asset) (*mediaPayload, error) {
	enc, err := a.Encode()
	if err != nil {
		return nil, err
	}
	return &mediaPayload{
		BytesBase64Encoded: enc.Content,
		MimeType:           enc.MediaType,
	}, nil
}

// doRequestWithRetry performs an HTTP request with exponential backoff retry.
func (c *HTTPClient) doRequestWithRetry(ctx context.Context, method, url string, body []byte, result *operationResponse) error {
	var lastErr error
	backoff := c.baseBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("veo: context cancelled: %w", ctx.Err())
			case <-time.After(backoff):
				backoff *= 2 // Exponential backoff
			}
		}

		err := c.doRequest(ctx, method, url, body, result)
		if err == nil {
			return nil
		}

		if !isRetryable(err) {
			return err
		}

		lastErr = err
	}

	return fmt.Errorf("veo: max retries exceeded: %w", lastErr)
}

// doRequest performs a single HTTP request.
func (c *HTTPClient) doRequest(ctx context.Context, method, url string, body []byte, result *operationResponse) error {
	key, err := c.creds.APIKey()
	if err != nil {
		return err
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("veo: create request: %w", err)
	}

	req.Header.Set("x-goog-api-key", key)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &retryableError{err: fmt.Errorf("veo: request failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &retryableError{err: fmt.Errorf("veo: read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		terr := &TransportError{StatusCode: resp.StatusCode, Body: string(respBody)}
		// 5xx and 429 are transient.
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return &retryableError{err: terr}
		}
		return terr
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("veo: unmarshal response: %w", err)
		}
	}

	return nil
}

// readBodyForDiagnostics reads an error response body best-effort. A read
// failure degrades to a placeholder rather than raising a new error.
func readBodyForDiagnostics(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 64*1024))
	if err != nil {
		return "<unreadable body>"
	}
	return string(body)
}

// retryableError wraps errors that should be retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	return e.err
}

// isRetryable returns true if the error should be retried.
func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)

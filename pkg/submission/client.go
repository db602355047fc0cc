package submission

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

	"github.com/goliatone/go-intake/pkg/intake"
)

const (
	defaultTimeout  = 15 * time.Second
	maxResponseSize = 1 << 20
)

// Receipt is the server acknowledgement of an accepted payload. The request
// number may differ from the submitted one when the server had to resolve a
// collision.
type Receipt struct {
	RequestNumber string    `json:"requestNumber"`
	SubmittedAt   time.Time `json:"submittedAt,omitempty"`
}

// Client posts payloads to the request-creation API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout bounds every request. Zero disables the per-request timeout.
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// NewClient targets the API rooted at baseURL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

type apiError struct {
	Code    string              `json:"code"`
	Message string              `json:"message"`
	Fields  map[string][]string `json:"fields,omitempty"`
}

// Submit posts payload to /api/requests. Failures are returned as
// *intake.SubmissionError; the client never retries.
func (c *Client) Submit(ctx context.Context, payload Payload) (Receipt, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return Receipt{}, &intake.SubmissionError{RequestNumber: payload.RequestNumber, Err: err}
	}

	var receipt Receipt
	if err := c.post(ctx, "/api/requests", payload.Locale, body, &receipt); err != nil {
		var subErr *intake.SubmissionError
		if errors.As(err, &subErr) {
			subErr.RequestNumber = payload.RequestNumber
			return Receipt{}, subErr
		}
		return Receipt{}, &intake.SubmissionError{RequestNumber: payload.RequestNumber, Err: err}
	}
	if receipt.RequestNumber == "" {
		receipt.RequestNumber = payload.RequestNumber
	}
	return receipt, nil
}

// Confirm asks the server to send the confirmation email for requestNumber.
func (c *Client) Confirm(ctx context.Context, requestNumber, locale string) error {
	if strings.TrimSpace(requestNumber) == "" {
		return errors.New("submission: request number is required")
	}
	body, err := json.Marshal(map[string]string{"locale": locale})
	if err != nil {
		return err
	}

	path := "/api/requests/" + url.PathEscape(requestNumber) + "/confirmation"
	if err := c.post(ctx, path, locale, body, nil); err != nil {
		var subErr *intake.SubmissionError
		if errors.As(err, &subErr) {
			subErr.RequestNumber = requestNumber
			return subErr
		}
		return &intake.SubmissionError{RequestNumber: requestNumber, Err: err}
	}
	return nil
}

func (c *Client) post(ctx context.Context, path, locale string, body []byte, out any) error {
	if c.baseURL == "" {
		return errors.New("submission: base url is not configured")
	}

	reqCtx := ctx
	var cancel context.CancelFunc
	if c.timeout > 0 {
		reqCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if locale != "" {
		req.Header.Set("Accept-Language", locale)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return err
	}

	var env envelope
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &env); err != nil {
			return &intake.SubmissionError{
				StatusCode: resp.StatusCode,
				Message:    "unexpected response body",
				Err:        err,
			}
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || !env.Success {
		apiErr := decodeAPIError(env.Error)
		message := apiErr.Message
		if message == "" {
			message = fmt.Sprintf("unexpected status %s", resp.Status)
		}
		return &intake.SubmissionError{
			StatusCode: resp.StatusCode,
			Code:       apiErr.Code,
			Message:    message,
			Fields:     apiErr.Fields,
		}
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return &intake.SubmissionError{StatusCode: resp.StatusCode, Message: "unexpected response data", Err: err}
		}
	}
	return nil
}

// decodeAPIError accepts both a bare string and a {code, message} object.
func decodeAPIError(raw json.RawMessage) apiError {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return apiError{}
	}
	if raw[0] == '"' {
		var message string
		if err := json.Unmarshal(raw, &message); err == nil {
			return apiError{Message: message}
		}
		return apiError{}
	}
	var out apiError
	_ = json.Unmarshal(raw, &out)
	return out
}

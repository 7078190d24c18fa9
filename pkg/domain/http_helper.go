package domain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"
)

const defaultHTTPTimeout = 30 * time.Second

type HTTPAuthScheme string

const (
	HTTPAuthSchemeNone   HTTPAuthScheme = ""
	HTTPAuthSchemeBearer HTTPAuthScheme = "bearer"
	HTTPAuthSchemeBasic  HTTPAuthScheme = "basic"
	HTTPAuthSchemeHeader HTTPAuthScheme = "header"
)

// HTTPCredential is the decoded form of an http-type credential.
type HTTPCredential struct {
	Scheme      HTTPAuthScheme `json:"scheme"`
	Token       string         `json:"token,omitempty"`
	Username    string         `json:"username,omitempty"`
	Password    string         `json:"password,omitempty"`
	HeaderName  string         `json:"header_name,omitempty"`
	HeaderValue string         `json:"header_value,omitempty"`
}

type HTTPRequestOptions struct {
	Method  string
	URL     string
	Headers map[string]string
	Query   map[string]string

	// Body is JSON-encoded unless RawBody is set.
	Body    any
	RawBody []byte

	Timeout            time.Duration
	IgnoreStatusErrors bool
	Credential         *HTTPCredential
}

type HTTPResult struct {
	StatusCode int               `json:"status_code"`
	Status     string            `json:"status"`
	Headers    map[string]string `json:"headers"`

	// Body is the decoded JSON response when the content is JSON, the raw
	// string otherwise.
	Body any `json:"body"`
}

// HTTPStatusError is returned for non-2xx responses unless the caller opted
// into ignoring status errors.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("request failed with status %s", e.Status)
}

// HTTPHelper performs HTTP calls on behalf of nodes with transparent JSON
// handling, cancellation and credential application.
type HTTPHelper struct {
	client *http.Client
}

func NewHTTPHelper() *HTTPHelper {
	return &HTTPHelper{
		client: &http.Client{},
	}
}

func NewHTTPHelperWithClient(client *http.Client) *HTTPHelper {
	return &HTTPHelper{client: client}
}

func (h *HTTPHelper) Do(ctx context.Context, opts HTTPRequestOptions) (HTTPResult, error) {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = defaultHTTPTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var bodyReader io.Reader

	switch {
	case opts.RawBody != nil:
		bodyReader = bytes.NewReader(opts.RawBody)
	case opts.Body != nil:
		encoded, err := json.Marshal(opts.Body)
		if err != nil {
			return HTTPResult{}, fmt.Errorf("failed to encode request body: %w", err)
		}

		bodyReader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, opts.URL, bodyReader)
	if err != nil {
		return HTTPResult{}, err
	}

	if opts.Body != nil && opts.RawBody == nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Query parameters are applied in sorted key order so that repeated
	// requests for the same options produce identical URLs.
	if len(opts.Query) > 0 {
		query := req.URL.Query()

		keys := make([]string, 0, len(opts.Query))
		for key := range opts.Query {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		for _, key := range keys {
			query.Set(key, opts.Query[key])
		}

		req.URL.RawQuery = query.Encode()
	}

	for key, value := range opts.Headers {
		req.Header.Set(key, value)
	}

	// Credential auth is applied last so it wins over caller-supplied
	// headers for the matching scheme.
	if opts.Credential != nil {
		applyCredential(req, *opts.Credential)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return HTTPResult{}, err
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return HTTPResult{}, fmt.Errorf("failed to read response body: %w", err)
	}

	if !opts.IgnoreStatusErrors && (resp.StatusCode < 200 || resp.StatusCode > 299) {
		return HTTPResult{}, &HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	headers := map[string]string{}
	for key := range resp.Header {
		headers[key] = resp.Header.Get(key)
	}

	return HTTPResult{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Headers:    headers,
		Body:       decodeResponseBody(responseBody),
	}, nil
}

func applyCredential(req *http.Request, credential HTTPCredential) {
	switch credential.Scheme {
	case HTTPAuthSchemeBearer:
		req.Header.Set("Authorization", "Bearer "+credential.Token)
	case HTTPAuthSchemeBasic:
		req.SetBasicAuth(credential.Username, credential.Password)
	case HTTPAuthSchemeHeader:
		if credential.HeaderName != "" {
			req.Header.Set(credential.HeaderName, credential.HeaderValue)
		}
	}
}

func decodeResponseBody(body []byte) any {
	if len(body) == 0 {
		return nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return string(body)
	}

	return decoded
}

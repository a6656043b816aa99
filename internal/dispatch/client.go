package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DispatchPath is the endpoint the server handler listens on and the client
// portal posts to.
const DispatchPath = "/api/v1/factory/dispatch"

// HTTPPortal carries envelopes to a factory server over HTTP. One envelope
// is one POST; the request context covers the full round trip, so a
// cancelled context aborts the client wait and, via connection teardown,
// signals the server to abandon in-flight work.
type HTTPPortal struct {
	base   string
	client *http.Client
}

// NewHTTPPortal constructs a portal against the server's base URL.
func NewHTTPPortal(baseURL string, client *http.Client) *HTTPPortal {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPPortal{base: strings.TrimSuffix(baseURL, "/"), client: client}
}

var _ Portal = (*HTTPPortal)(nil)

// RoundTrip posts one envelope and decodes the response.
func (p *HTTPPortal) RoundTrip(ctx context.Context, env Envelope) (Response, error) {
	body, err := json.Marshal(env)
	if err != nil {
		return Response{}, fmt.Errorf("dispatch: marshal envelope: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.base+DispatchPath, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("dispatch: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("dispatch: round trip: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("dispatch: read response: %w", err)
	}
	var decoded Response
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Response{}, fmt.Errorf("dispatch: decode response (status %d): %w", resp.StatusCode, err)
	}
	if decoded.Result == nil && decoded.Denied == nil && decoded.Error == nil {
		return Response{}, fmt.Errorf("dispatch: empty response (status %d)", resp.StatusCode)
	}
	return decoded, nil
}

package arkkies

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// The login flow is a browser flow; the provider rejects obvious
	// non-browser agents.
	userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

	outletHeader = "x-ark-outlet"

	maxErrorBodySnippet = 512
)

// StatusError is returned for any non-2xx response, carrying the upstream
// status and a snippet of the response body.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("arkkies request failed with status %d: %s", e.Status, e.Body)
}

// Client is a thin wrapper over the Arkkies HTTP API. It attaches jar
// cookies and default headers, performs exactly one call per invocation, and
// feeds response Set-Cookie headers back into the jar. Retry policy belongs
// to the caller.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			// Redirects would drop the jar's view of intermediate
			// Set-Cookie headers.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// Do performs one call against the API. path is resolved against the base
// URL unless already absolute. outletID, when non-empty, is sent under both
// casings of the outlet context header since the provider's services are
// inconsistent about case sensitivity. Response cookies are merged into jar
// even when the call fails.
func (c *Client) Do(ctx context.Context, jar *Jar, method, path string, body any, outletID string) (json.RawMessage, error) {
	url := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		url = c.baseURL + path
	}

	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("DNT", "1")
	if header := jar.Header(); header != "" {
		req.Header.Set("Cookie", header)
	}
	if outletID != "" {
		// Header.Set canonicalizes keys, so the lowercase variant has to
		// bypass it to actually go over the wire as-is.
		req.Header.Set("X-Ark-Outlet", outletID)
		req.Header[outletHeader] = []string{outletID}
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error().Err(err).Str("method", method).Str("path", path).Msg("arkkies request error")
		return nil, fmt.Errorf("arkkies request failed: %w", err)
	}
	defer resp.Body.Close()

	// Intermediate steps (CSRF, session issuance) set cookies on error
	// responses too.
	jar.AddFromSetCookie(resp.Header.Values("Set-Cookie"))

	respBody, readErr := io.ReadAll(resp.Body)

	log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("arkkies call")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := ""
		if readErr == nil {
			snippet = string(respBody)
			if len(snippet) > maxErrorBodySnippet {
				snippet = snippet[:maxErrorBodySnippet]
			}
		}
		return nil, &StatusError{Status: resp.StatusCode, Body: snippet}
	}

	if readErr != nil {
		return nil, fmt.Errorf("read response body: %w", readErr)
	}
	if len(respBody) == 0 {
		return json.RawMessage("null"), nil
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("invalid JSON in arkkies response (status %d)", resp.StatusCode)
	}
	return json.RawMessage(respBody), nil
}

// DoJSON performs Do and decodes the response into out.
func (c *Client) DoJSON(ctx context.Context, jar *Jar, method, path string, body any, outletID string, out any) error {
	raw, err := c.Do(ctx, jar, method, path, body, outletID)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode arkkies response: %w", err)
	}
	return nil
}

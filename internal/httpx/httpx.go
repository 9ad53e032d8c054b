// Package httpx holds the shared outbound HTTP policy: one client, fixed
// timeouts, an identifying User-Agent, and no retries.
package httpx

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"strings"
	"time"

	iaerrors "github.com/hpungsan/iapod/internal/errors"
)

const (
	DefaultTimeout = 20 * time.Second
	UserAgent      = "iapod/1.0 (+https://archive.org)"

	// maxBody bounds every response body read into memory.
	maxBody = 32 << 20
	// maxErrorBody bounds the body excerpt carried by a status error.
	maxErrorBody = 512
)

// Transport sets default headers on every request. Failures are returned
// as-is: nothing is retried.
type Transport struct {
	Base      http.RoundTripper
	UserAgent string
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	r := req.Clone(req.Context())
	if r.Header.Get("User-Agent") == "" {
		r.Header.Set("User-Agent", t.UserAgent)
	}
	return base.RoundTrip(r)
}

// NewClient builds the client used for catalog, manifest and channel calls.
// A non-positive timeout means DefaultTimeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	base := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 15 * time.Second,
	}
	return &http.Client{
		Transport: &Transport{Base: base, UserAgent: UserAgent},
		Timeout:   timeout,
	}
}

// Get fetches url and returns the body of a 2xx response.
// Connection failures and other statuses are TRANSPORT errors.
func Get(ctx context.Context, client *http.Client, url, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, iaerrors.NewTransport(url, err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
	}
	return do(client, req)
}

// PostJSON sends payload as a JSON body and returns the body of a 2xx response.
func PostJSON(ctx context.Context, client *http.Client, url string, header http.Header, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, iaerrors.NewTransport(url, err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return do(client, req)
}

func do(client *http.Client, req *http.Request) ([]byte, error) {
	if client == nil {
		client = http.DefaultClient
	}
	url := redact(req.URL.String())

	resp, err := client.Do(req)
	if err != nil {
		// *url.Error repeats the unredacted URL.
		var uerr *neturl.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, iaerrors.NewTransport(url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, iaerrors.NewTransport(url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, iaerrors.NewHTTPStatus(url, resp.StatusCode, excerpt(body))
	}
	return body, nil
}

// redact hides bot tokens embedded in request paths (".../bot<token>/method").
func redact(url string) string {
	i := strings.Index(url, "/bot")
	if i < 0 {
		return url
	}
	rest := url[i+len("/bot"):]
	j := strings.Index(rest, "/")
	if j < 0 {
		return url
	}
	return url[:i] + "/bot***" + rest[j:]
}

func excerpt(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		s = strings.ToValidUTF8(s[:maxErrorBody], "") + "..."
	}
	return s
}

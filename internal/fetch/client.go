// Package fetch downloads manifests, metadata and tarballs over HTTP(S). A
// registered proxy-login callback is consulted when a proxy demands
// authentication.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const defaultUserAgent = "launcher/1.0"

// HTTPError reports a non-2xx response.
type HTTPError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Unable to download %s. Got status code %d", e.URL, e.StatusCode)
}

// ProxyChallenge describes a proxy authentication request.
type ProxyChallenge struct {
	URL          string
	Authenticate string
}

// Credentials answer a ProxyChallenge.
type Credentials struct {
	Username string
	Password string
}

// ProxyLoginFunc asks the user for proxy credentials.
type ProxyLoginFunc func(ctx context.Context, challenge ProxyChallenge) (Credentials, error)

// Options configures a Client.
type Options struct {
	Proxy      string
	Timeout    time.Duration
	UserAgent  string
	ProxyLogin ProxyLoginFunc
}

// Client performs downloads.
type Client struct {
	http       *http.Client
	userAgent  string
	proxyLogin ProxyLoginFunc

	mu    sync.Mutex
	creds *Credentials
}

// New builds a Client. An empty Options.Proxy falls back to the proxy
// environment variables.
func New(opts Options) (*Client, error) {
	baseProxy := http.ProxyFromEnvironment
	if strings.TrimSpace(opts.Proxy) != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		baseProxy = http.ProxyURL(proxyURL)
	}

	c := &Client{
		userAgent:  opts.UserAgent,
		proxyLogin: opts.ProxyLogin,
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = func(req *http.Request) (*url.URL, error) {
		proxyURL, err := baseProxy(req)
		if err != nil || proxyURL == nil {
			return proxyURL, err
		}
		if creds := c.credentials(); creds != nil {
			withAuth := *proxyURL
			withAuth.User = url.UserPassword(creds.Username, creds.Password)
			return &withAuth, nil
		}
		return proxyURL, nil
	}
	c.http = &http.Client{Transport: transport, Timeout: opts.Timeout}
	return c, nil
}

// SetProxyLogin registers the callback used to answer proxy challenges.
func (c *Client) SetProxyLogin(fn ProxyLoginFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.proxyLogin = fn
}

func (c *Client) credentials() *Credentials {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds
}

func (c *Client) loginFunc() ProxyLoginFunc {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.proxyLogin
}

func (c *Client) setCredentials(creds Credentials) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = &creds
}

// DownloadBytes returns the body of rawURL.
func (c *Client) DownloadBytes(ctx context.Context, rawURL string) ([]byte, error) {
	resp, err := c.get(ctx, rawURL, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return data, nil
}

// DownloadToJSON decodes the JSON body of rawURL into v.
func (c *Client) DownloadToJSON(ctx context.Context, rawURL string, v any) error {
	data, err := c.DownloadBytes(ctx, rawURL)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", rawURL, err)
	}
	return nil
}

// DownloadToFile streams rawURL into dest. The file only appears at dest once
// the whole body has been written.
func (c *Client) DownloadToFile(ctx context.Context, rawURL, dest string, allowProxyAuth bool) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("prepare download destination: %w", err)
	}

	resp, err := c.get(ctx, rawURL, allowProxyAuth)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	tmpFile, err := os.CreateTemp(filepath.Dir(dest), "download-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	if _, err := io.Copy(tmpFile, resp.Body); err != nil {
		tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("finalize download: %w", err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string, allowProxyAuth bool) (*http.Response, error) {
	resp, err := c.do(ctx, rawURL)

	if login := c.loginFunc(); allowProxyAuth && login != nil && proxyAuthRequired(resp, err) {
		challenge := ProxyChallenge{URL: rawURL}
		if resp != nil {
			challenge.Authenticate = resp.Header.Get("Proxy-Authenticate")
			resp.Body.Close()
		}
		creds, loginErr := login(ctx, challenge)
		if loginErr != nil {
			return nil, fmt.Errorf("proxy login for %s: %w", rawURL, loginErr)
		}
		c.setCredentials(creds)
		resp, err = c.do(ctx, rawURL)
	}

	if err != nil {
		return nil, fmt.Errorf("download %s: %w", rawURL, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		resp.Body.Close()
		return nil, &HTTPError{URL: rawURL, StatusCode: resp.StatusCode, Status: resp.Status}
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Cache-Control", "no-cache")
	return c.http.Do(req)
}

// proxyAuthRequired recognises a 407 from a plain HTTP proxy as well as the
// error returned when a CONNECT tunnel is refused for the same reason.
func proxyAuthRequired(resp *http.Response, err error) bool {
	if err != nil {
		return strings.Contains(err.Error(), http.StatusText(http.StatusProxyAuthRequired))
	}
	return resp != nil && resp.StatusCode == http.StatusProxyAuthRequired
}

// IsNotFound reports whether err is an HTTP 404.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

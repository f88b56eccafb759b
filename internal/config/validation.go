package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationResult captures a single validation finding.
type ValidationResult struct {
	Level   string `json:"level"` // "error" or "warning"
	Message string `json:"message"`
}

// Validate checks the configuration and returns structured findings.
func (c Config) Validate() []ValidationResult {
	var results []ValidationResult
	results = append(results, c.validateOfficialURL()...)
	results = append(results, c.validateNetwork()...)
	results = append(results, c.validateSync()...)
	results = append(results, c.validateIPC()...)
	return results
}

// HasErrors reports whether any result is an error.
func HasErrors(results []ValidationResult) bool {
	for _, r := range results {
		if r.Level == "error" {
			return true
		}
	}
	return false
}

func (c Config) validateOfficialURL() []ValidationResult {
	if err := checkHTTPURL(c.OfficialSourceURL); err != nil {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("official_source_url %q: %v", c.OfficialSourceURL, err),
		}}
	}
	if !strings.HasSuffix(c.OfficialSourceURL, "/source.json") {
		return []ValidationResult{{
			Level:   "warning",
			Message: fmt.Sprintf("official_source_url %q does not point at a source.json manifest", c.OfficialSourceURL),
		}}
	}
	return nil
}

func (c Config) validateNetwork() []ValidationResult {
	var results []ValidationResult
	if proxy := strings.TrimSpace(c.Network.Proxy); proxy != "" {
		if u, err := url.Parse(proxy); err != nil || u.Host == "" {
			results = append(results, ValidationResult{
				Level:   "error",
				Message: fmt.Sprintf("network.proxy %q is not a valid URL", proxy),
			})
		}
	}
	if c.Network.TimeoutS < 0 {
		results = append(results, ValidationResult{
			Level:   "error",
			Message: fmt.Sprintf("network.timeout_s must not be negative (got %d)", c.Network.TimeoutS),
		})
	}
	return results
}

func (c Config) validateSync() []ValidationResult {
	if c.Sync.Concurrency < 1 {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("sync.concurrency must be at least 1 (got %d)", c.Sync.Concurrency),
		}}
	}
	if c.Sync.Concurrency > 32 {
		return []ValidationResult{{
			Level:   "warning",
			Message: fmt.Sprintf("sync.concurrency %d is unusually high", c.Sync.Concurrency),
		}}
	}
	return nil
}

func (c Config) validateIPC() []ValidationResult {
	host, _, err := net.SplitHostPort(c.IPC.Listen)
	if err != nil {
		return []ValidationResult{{
			Level:   "error",
			Message: fmt.Sprintf("ipc.listen %q: %v", c.IPC.Listen, err),
		}}
	}
	if host != "127.0.0.1" && host != "localhost" && host != "::1" {
		return []ValidationResult{{
			Level:   "warning",
			Message: fmt.Sprintf("ipc.listen %q is reachable from other hosts", c.IPC.Listen),
		}}
	}
	return nil
}

func checkHTTPURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https")
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

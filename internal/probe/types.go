package probe

import "context"

// CheckResult holds the outcome of a single probe.
//
// StatusCode is the final HTTP status after redirects; 0 for transport or DNS
// errors.
type CheckResult struct {
	Name       string  `json:"name"`
	Success    bool    `json:"success"`
	Message    string  `json:"message"`
	StatusCode int     `json:"status_code,omitempty"`
	LatencyMS  float64 `json:"latency_ms,omitempty"`
}

// Checker is implemented by any service check (HTTP, DNS, ...).
type Checker interface {
	Check(ctx context.Context, target string) CheckResult
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc func(ctx context.Context, target string) CheckResult

func (f CheckerFunc) Check(ctx context.Context, target string) CheckResult {
	return f(ctx, target)
}

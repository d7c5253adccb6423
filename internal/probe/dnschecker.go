package probe

import (
	"context"
	"net/url"
)

type DNSChecker struct {
	Resolver Resolver
}

func NewDNSChecker() *DNSChecker {
	return &DNSChecker{}
}

func (d *DNSChecker) Check(ctx context.Context, target string) CheckResult {
	dns := CheckDNS(ctx, d.Resolver, extractHost(target))
	return CheckResult{
		Name:    "DNS",
		Success: dns.Class == DNSResolves,
		Message: dns.Class,
	}
}

// Diagnosing runs Primary and, only when it fails, asks Diagnose for a hint
// that is appended to the failure message. The verdict is never changed.
type Diagnosing struct {
	Primary  Checker
	Diagnose Checker
}

func (d *Diagnosing) Check(ctx context.Context, target string) CheckResult {
	out := d.Primary.Check(ctx, target)
	if out.Success || d.Diagnose == nil {
		return out
	}
	hint := d.Diagnose.Check(ctx, target)
	if hint.Message != "" {
		out.Message = out.Message + " dns=" + hint.Message
	}
	return out
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}

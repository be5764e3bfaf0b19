package probe

import (
	"context"
	"net"
	"net/url"
	"strings"
	"time"
)

// DNSChecker diagnoses the hostname of a target. It is meant as a secondary
// checker in a MultiChecker, explaining why the primary check failed.
type DNSChecker struct {
	Resolver Resolver
	Timeout  time.Duration
}

func NewDNSChecker() *DNSChecker {
	return &DNSChecker{Resolver: net.DefaultResolver, Timeout: defaultDNSTimeout}
}

func (d *DNSChecker) Check(ctx context.Context, target string) CheckResult {
	s := diagnose(ctx, d.Resolver, d.Timeout, extractHost(target))
	msg := s.Class
	if s.CNAME != "" {
		msg += " cname=" + s.CNAME
	}
	return CheckResult{
		Name:    "dns",
		Success: s.Class == DNSResolves,
		Message: strings.TrimSpace(msg),
	}
}

func extractHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Hostname() == "" {
		return raw
	}
	return u.Hostname()
}

package probe

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"
)

type fakeResolver struct {
	ips    []net.IP
	ipErr  error
	cname  string
	ns     []*net.NS
	nsErr  error
	called int
}

func (f *fakeResolver) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	f.called++
	return f.ips, f.ipErr
}

func (f *fakeResolver) LookupCNAME(ctx context.Context, host string) (string, error) {
	if f.cname == "" {
		return host + ".", nil
	}
	return f.cname, nil
}

func (f *fakeResolver) LookupNS(ctx context.Context, name string) ([]*net.NS, error) {
	return f.ns, f.nsErr
}

func TestDiagnose_Classes(t *testing.T) {
	notFound := &net.DNSError{Err: "no such host", IsNotFound: true}
	temporary := &net.DNSError{Err: "server misbehaving", IsTemporary: true}
	noNS := errors.New("no ns")

	cases := []struct {
		name string
		r    *fakeResolver
		want string
	}{
		{"resolves", &fakeResolver{ips: []net.IP{net.ParseIP("192.0.2.1")}, nsErr: noNS}, DNSResolves},
		{"nxdomain", &fakeResolver{ipErr: notFound, nsErr: noNS}, DNSNXDomain},
		{"zone without A", &fakeResolver{ipErr: notFound, ns: []*net.NS{{Host: "ns1.example.com."}}}, DNSNoARecord},
		{"servfail", &fakeResolver{ipErr: temporary, nsErr: noNS}, DNSServFail},
		{"opaque error", &fakeResolver{ipErr: errors.New("weird"), nsErr: noNS}, DNSServFail},
	}
	for _, c := range cases {
		got := diagnose(context.Background(), c.r, time.Second, "example.com")
		if got.Class != c.want {
			t.Fatalf("%s: class=%s want %s", c.name, got.Class, c.want)
		}
	}
}

func TestDiagnose_InvalidNameSkipsLookups(t *testing.T) {
	for _, in := range []string{"", "  ", "https://example.com"} {
		r := &fakeResolver{}
		if got := diagnose(context.Background(), r, time.Second, in).Class; got != DNSInvalidName {
			t.Fatalf("diagnose(%q) class=%s want %s", in, got, DNSInvalidName)
		}
		if r.called != 0 {
			t.Fatalf("diagnose(%q) should not query the resolver", in)
		}
	}
}

func TestDNSChecker_ReportsCNAME(t *testing.T) {
	d := &DNSChecker{
		Resolver: &fakeResolver{ipErr: &net.DNSError{IsNotFound: true}, cname: "edge.cdn.example.", nsErr: errors.New("none")},
		Timeout:  time.Second,
	}
	out := d.Check(context.Background(), "https://www.example.com/health")
	if out.Success || out.Name != "dns" || out.Message != "NXDOMAIN cname=edge.cdn.example" {
		t.Fatalf("unexpected result: %+v", out)
	}
}

func TestExtractHost(t *testing.T) {
	if got := extractHost("https://example.com:8443/path"); got != "example.com" {
		t.Fatalf("want example.com, got %q", got)
	}
	if got := extractHost("example.com"); got != "example.com" {
		t.Fatalf("want raw passthrough, got %q", got)
	}
}

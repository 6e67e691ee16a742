// Package bdns is the DNS client every method handler and the MPIC service
// probe through. It wraps github.com/miekg/dns with a randomly-chosen
// resolver from a configured list, per-query retries, and the multi
// candidate-name fallback method handlers need to prefer a labeled record
// over the bare domain.
package bdns

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/prometheus/client_golang/prometheus"

	berrors "github.com/letsencrypt/dcv/errors"
	blog "github.com/letsencrypt/dcv/log"
	"github.com/letsencrypt/dcv/metrics"
)

var (
	// rfc1918_10 is 10.0.0.0/8.
	rfc1918_10 = net.IPNet{IP: []byte{10, 0, 0, 0}, Mask: []byte{255, 0, 0, 0}}
	// rfc1918_172_16 is 172.16.0.0/12.
	rfc1918_172_16 = net.IPNet{IP: []byte{172, 16, 0, 0}, Mask: []byte{255, 240, 0, 0}}
	// rfc1918_192_168 is 192.168.0.0/16.
	rfc1918_192_168 = net.IPNet{IP: []byte{192, 168, 0, 0}, Mask: []byte{255, 255, 0, 0}}
	// rfc5735_127 is 127.0.0.0/8 (loopback).
	rfc5735_127 = net.IPNet{IP: []byte{127, 0, 0, 0}, Mask: []byte{255, 0, 0, 0}}
)

func isPrivateV4(ip net.IP) bool {
	return rfc1918_10.Contains(ip) || rfc1918_172_16.Contains(ip) || rfc1918_192_168.Contains(ip) || rfc5735_127.Contains(ip)
}

// Client is the DNS client interface method handlers, fileclient, and the
// MPIC service depend on. Defined as an interface so that a fake can be
// injected in unit tests without a live network.
type Client interface {
	LookupTXT(ctx context.Context, names []string) (records []string, matchedName string, err error)
	LookupHost(ctx context.Context, hostname string) ([]net.IP, error)
	LookupCNAME(ctx context.Context, hostname string) (string, error)
	LookupCAA(ctx context.Context, hostname string) ([]*dns.CAA, error)
	LookupMX(ctx context.Context, hostname string) ([]string, error)
	LookupDS(ctx context.Context, hostname string) ([]*dns.DS, error)
	LookupRRSIG(ctx context.Context, hostname string, coveredType uint16) ([]*dns.RRSIG, error)
}

// Config controls resolver selection, timeouts, and retry counts. All
// fields have sane defaults applied by New if left zero.
type Config struct {
	Servers                  []string
	Timeout                  time.Duration // per-query timeout, default 2s
	Retries                  int           // default 3
	AllowRestrictedAddresses bool          // test-only: permit RFC1918/5735 answers
}

const (
	defaultTimeout = 2 * time.Second
	defaultRetries = 3
)

// impl is the production Client, grounded on the exchange-a-single-message
// pattern of a classic miekg/dns consumer: build one *dns.Msg per query,
// pick a resolver at random, exchange, and classify the Rcode.
type impl struct {
	client  *dns.Client
	servers []string
	retries int

	allowRestrictedAddresses bool

	log blog.Logger

	queryTime   *prometheus.HistogramVec
	queryErrors *prometheus.CounterVec
}

// New constructs a production DNS client. log and reg may be nil in which
// case a no-op logger/registerer is used — convenient for the example CLI
// and for tests that don't care about observability.
func New(cfg Config, log blog.Logger, reg prometheus.Registerer) (Client, error) {
	if len(cfg.Servers) == 0 {
		return nil, berrors.InternalServerError("bdns: at least one DNS server must be configured")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	retries := cfg.Retries
	if retries <= 0 {
		retries = defaultRetries
	}
	if log == nil {
		log = blog.NewMock()
	}
	if reg == nil {
		reg = metrics.NoopRegisterer
	}

	queryTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dcv_dns_query_duration_seconds",
		Help:    "Time taken for a single DNS exchange, labeled by query type and result.",
		Buckets: metrics.InternetFacingBuckets,
	}, []string{"qtype", "result"})
	queryErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dcv_dns_query_errors_total",
		Help: "Count of DNS query failures, labeled by query type and error kind.",
	}, []string{"qtype", "kind"})
	metrics.MustRegister(reg, queryTime, queryErrors)

	return &impl{
		client:                   &dns.Client{Timeout: timeout},
		servers:                  cfg.Servers,
		retries:                  retries,
		allowRestrictedAddresses: cfg.AllowRestrictedAddresses,
		log:                      log,
		queryTime:                queryTime,
		queryErrors:              queryErrors,
	}, nil
}

func (c *impl) pickServer() (string, error) {
	if len(c.servers) == 0 {
		return "", fmt.Errorf("bdns: no servers configured")
	}
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(c.servers))))
	if err != nil {
		return c.servers[0], nil
	}
	return c.servers[n.Int64()], nil
}

// exchangeOne performs a single DNS exchange, retrying up to c.retries
// times on transport error (not on a valid-but-unhelpful Rcode). The
// resolver is re-picked at random on every attempt so retries don't hammer
// a single down resolver.
func (c *impl) exchangeOne(ctx context.Context, hostname string, qtype uint16) (*dns.Msg, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(hostname), qtype)
	m.SetEdns0(4096, true)

	qtypeName := dns.TypeToString[qtype]
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		server, err := c.pickServer()
		if err != nil {
			return nil, berrors.NewDcv(berrors.DNSLookupIO, "%s", err)
		}
		start := time.Now()
		r, _, err := c.client.ExchangeContext(ctx, m, server)
		elapsed := time.Since(start).Seconds()
		if err != nil {
			lastErr = err
			c.queryErrors.WithLabelValues(qtypeName, "transport").Inc()
			c.queryTime.WithLabelValues(qtypeName, "error").Observe(elapsed)
			if ctx.Err() != nil {
				return nil, berrors.WrapDcv(berrors.DNSLookupIO, ctx.Err(), "dns query for %s (%s) timed out", hostname, qtypeName)
			}
			continue
		}
		c.queryTime.WithLabelValues(qtypeName, "ok").Observe(elapsed)
		return r, nil
	}
	return nil, berrors.WrapDcv(berrors.DNSLookupIO, lastErr, "dns query for %s (%s) failed after %d attempts", hostname, qtypeName, c.retries+1)
}

// LookupTXT queries names in order, returning the first name whose
// response contains at least one TXT record. This is the "prefer the
// labeled name, fall back to the bare name" rule method handlers rely on.
func (c *impl) LookupTXT(ctx context.Context, names []string) ([]string, string, error) {
	var errs berrors.Set
	for _, name := range names {
		r, err := c.exchangeOne(ctx, name, dns.TypeTXT)
		if err != nil {
			errs.Add(err)
			continue
		}
		if r.Rcode == dns.RcodeNameError || r.Rcode == dns.RcodeNXRrset {
			continue
		}
		if r.Rcode != dns.RcodeSuccess {
			errs.Add(berrors.NewDcv(berrors.DNSLookupIO, "dns rcode %s for TXT %s", dns.RcodeToString[r.Rcode], name))
			continue
		}
		var txt []string
		for _, answer := range r.Answer {
			if rec, ok := answer.(*dns.TXT); ok {
				txt = append(txt, strings.Join(rec.Txt, ""))
			}
		}
		if len(txt) > 0 {
			return txt, name, nil
		}
	}
	if errs.Empty() {
		return nil, "", berrors.NewDcv(berrors.DNSLookupRecordNotFound, "no TXT record found for any of %v", names)
	}
	return nil, "", errs.Union()
}

// LookupHost resolves A records for hostname, filtering RFC1918/RFC5735
// private addresses unless the client was constructed with
// AllowRestrictedAddresses for test use.
func (c *impl) LookupHost(ctx context.Context, hostname string) ([]net.IP, error) {
	r, err := c.exchangeOne(ctx, hostname, dns.TypeA)
	if err != nil {
		return nil, err
	}
	if r.Rcode == dns.RcodeNameError {
		return nil, berrors.NewDcv(berrors.DNSLookupUnknownHost, "no such host %s", hostname)
	}
	if r.Rcode != dns.RcodeSuccess {
		return nil, berrors.NewDcv(berrors.DNSLookupIO, "dns rcode %s for A %s", dns.RcodeToString[r.Rcode], hostname)
	}
	var addrs []net.IP
	for _, answer := range r.Answer {
		a, ok := answer.(*dns.A)
		if !ok || a.A.To4() == nil {
			continue
		}
		if isPrivateV4(a.A) && !c.allowRestrictedAddresses {
			continue
		}
		addrs = append(addrs, a.A)
	}
	if len(addrs) == 0 {
		return nil, berrors.NewDcv(berrors.DNSLookupRecordNotFound, "no public A records for %s", hostname)
	}
	return addrs, nil
}

// LookupCNAME returns the CNAME target for hostname, or "" if none exists
// (NXDOMAIN/NXRRSET are not errors here — the caller falls back to the
// bare name).
func (c *impl) LookupCNAME(ctx context.Context, hostname string) (string, error) {
	r, err := c.exchangeOne(ctx, hostname, dns.TypeCNAME)
	if err != nil {
		return "", err
	}
	if r.Rcode == dns.RcodeNameError || r.Rcode == dns.RcodeNXRrset {
		return "", nil
	}
	if r.Rcode != dns.RcodeSuccess {
		return "", berrors.NewDcv(berrors.DNSLookupIO, "dns rcode %s for CNAME %s", dns.RcodeToString[r.Rcode], hostname)
	}
	for _, answer := range r.Answer {
		if rec, ok := answer.(*dns.CNAME); ok {
			return rec.Target, nil
		}
	}
	return "", nil
}

// LookupCAA returns every CAA record for hostname. A SERVFAIL is returned
// as an error rather than as "no records", matching the teacher's
// conservative CAA-lookup behavior: a resolver outage must not silently
// grant issuance, and checkCAA's caller treats an empty result as "nothing
// to enforce".
func (c *impl) LookupCAA(ctx context.Context, hostname string) ([]*dns.CAA, error) {
	r, err := c.exchangeOne(ctx, hostname, dns.TypeCAA)
	if err != nil {
		return nil, err
	}
	if r.Rcode == dns.RcodeServerFailure {
		return nil, berrors.NewDcv(berrors.DNSLookupIO, "dns rcode %s for CAA %s", dns.RcodeToString[r.Rcode], hostname)
	}
	var caas []*dns.CAA
	for _, answer := range r.Answer {
		if rec, ok := answer.(*dns.CAA); ok {
			caas = append(caas, rec)
		}
	}
	return caas, nil
}

// LookupMX returns every MX target for hostname.
func (c *impl) LookupMX(ctx context.Context, hostname string) ([]string, error) {
	r, err := c.exchangeOne(ctx, hostname, dns.TypeMX)
	if err != nil {
		return nil, err
	}
	if r.Rcode == dns.RcodeNameError || r.Rcode == dns.RcodeNXRrset {
		return nil, nil
	}
	if r.Rcode != dns.RcodeSuccess {
		return nil, berrors.NewDcv(berrors.DNSLookupIO, "dns rcode %s for MX %s", dns.RcodeToString[r.Rcode], hostname)
	}
	var results []string
	for _, answer := range r.Answer {
		if rec, ok := answer.(*dns.MX); ok {
			results = append(results, rec.Mx)
		}
	}
	return results, nil
}

// LookupDS returns DS records for hostname, used by the optional DNSSEC
// authentication chain evidence.
func (c *impl) LookupDS(ctx context.Context, hostname string) ([]*dns.DS, error) {
	r, err := c.exchangeOne(ctx, hostname, dns.TypeDS)
	if err != nil {
		return nil, err
	}
	if r.Rcode != dns.RcodeSuccess {
		return nil, nil
	}
	var ds []*dns.DS
	for _, answer := range r.Answer {
		if rec, ok := answer.(*dns.DS); ok {
			ds = append(ds, rec)
		}
	}
	return ds, nil
}

// LookupRRSIG returns the RRSIG records covering coveredType at hostname,
// queried with the DO bit set (exchangeOne always sets EDNS0+DO via
// SetEdns0), used alongside LookupDS to assemble the optional DNSSEC
// authentication chain evidence.
func (c *impl) LookupRRSIG(ctx context.Context, hostname string, coveredType uint16) ([]*dns.RRSIG, error) {
	r, err := c.exchangeOne(ctx, hostname, dns.TypeRRSIG)
	if err != nil {
		return nil, err
	}
	if r.Rcode != dns.RcodeSuccess {
		return nil, nil
	}
	var sigs []*dns.RRSIG
	for _, answer := range r.Answer {
		if rec, ok := answer.(*dns.RRSIG); ok && rec.TypeCovered == coveredType {
			sigs = append(sigs, rec)
		}
	}
	return sigs, nil
}

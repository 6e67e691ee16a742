// Package fileclient performs the HTTP(S) GET that backs both the BR
// 3.2.2.4.18 file-authentication method and the ACME HTTP-01 challenge —
// the two near-identical fetch paths the source material keeps as separate
// modules collapse here into one. Resolution is routed through the
// caller's bdns.Client rather than the process's system resolver, so the
// CA's own configured resolvers answer every A lookup a redirect chain
// triggers.
package fileclient

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/letsencrypt/dcv/bdns"
	"github.com/letsencrypt/dcv/core"
	berrors "github.com/letsencrypt/dcv/errors"
	blog "github.com/letsencrypt/dcv/log"
	"github.com/letsencrypt/dcv/metrics"
)

const (
	defaultMaxRedirects     = 1
	defaultMaxResponseBytes = 64 * 1024
	defaultConnectTimeout   = 2 * time.Second
	defaultReadTimeout      = 30 * time.Second
)

// Config controls fetch limits. Zero values fall back to the BR-aligned
// defaults above.
type Config struct {
	HTTPPort         int
	HTTPSPort        int
	MaxRedirects     int
	MaxResponseBytes int64
	ConnectTimeout   time.Duration
	ReadTimeout      time.Duration
	UserAgent        string
}

// Result is the outcome of a successful fetch.
type Result struct {
	Body    []byte
	URL     string // the URL actually fetched, after any redirects
	Records []core.ValidationRecord
}

// clientMetrics holds the Prometheus instruments a Client reports fetch
// outcomes and adversary-tolerance-policy triggers (redirects, IPv4
// fallback) through.
type clientMetrics struct {
	fetchTime    *prometheus.HistogramVec
	redirects    prometheus.Counter
	ipv4Fallback prometheus.Counter
}

func initMetrics(reg prometheus.Registerer) *clientMetrics {
	fetchTime := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dcv_file_fetch_duration_seconds",
		Help:    "Time taken to fetch a validation file or challenge response, labeled by result.",
		Buckets: metrics.InternetFacingBuckets,
	}, []string{"result"})
	redirects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dcv_file_fetch_redirects_total",
		Help: "Count of redirect hops followed during file fetches.",
	})
	ipv4Fallback := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dcv_file_fetch_ipv4_fallback_total",
		Help: "Count of fetches that fell back to an IPv4 address after an IPv6 dial failure.",
	})
	metrics.MustRegister(reg, fetchTime, redirects, ipv4Fallback)
	return &clientMetrics{fetchTime: fetchTime, redirects: redirects, ipv4Fallback: ipv4Fallback}
}

// Client fetches validation files/challenge responses over HTTP(S).
type Client struct {
	cfg     Config
	dns     bdns.Client
	log     blog.Logger
	metrics *clientMetrics
}

// New constructs a Client. dns is the resolver every hostname lookup routes
// through, including hostnames discovered via redirect.
func New(cfg Config, dns bdns.Client, log blog.Logger, reg prometheus.Registerer) *Client {
	if cfg.HTTPPort == 0 {
		cfg.HTTPPort = 80
	}
	if cfg.HTTPSPort == 0 {
		cfg.HTTPSPort = 443
	}
	if cfg.MaxRedirects == 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if cfg.MaxResponseBytes == 0 {
		cfg.MaxResponseBytes = defaultMaxResponseBytes
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = defaultConnectTimeout
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	if log == nil {
		log = blog.NewMock()
	}
	if reg == nil {
		reg = metrics.NoopRegisterer
	}
	return &Client{cfg: cfg, dns: dns, log: log, metrics: initMetrics(reg)}
}

// target bundles the state needed to fetch a single host across an
// IPv6-preferred, IPv4-fallback dial policy: the address list to draw from,
// and which address is currently in use.
type target struct {
	host string
	port int
	path string

	available []net.IP
	next      []net.IP
	cur       net.IP
}

func (t *target) nextIP() error {
	if len(t.next) == 0 {
		return fmt.Errorf("host %q has no IP addresses remaining to use", t.host)
	}
	t.cur = t.next[0]
	t.next = t.next[1:]
	return nil
}

func splitByFamily(addrs []net.IP) (v4, v6 []net.IP) {
	for _, a := range addrs {
		if a.To4() != nil {
			v4 = append(v4, a)
		} else {
			v6 = append(v6, a)
		}
	}
	return v4, v6
}

func (c *Client) newTarget(ctx context.Context, host string, port int, path string) (*target, error) {
	addrs, err := c.dns.LookupHost(ctx, host)
	if err != nil {
		return nil, berrors.WrapDcv(berrors.FileValidationClientError, err, "resolving %s", host)
	}
	t := &target{host: host, port: port, path: path, available: addrs}
	v4, v6 := splitByFamily(addrs)
	switch {
	case len(v6) > 0 && len(v4) > 0:
		t.next = []net.IP{v6[0], v4[0]}
	case len(v6) > 0:
		t.next = []net.IP{v6[0]}
	case len(v4) > 0:
		t.next = []net.IP{v4[0]}
	default:
		return nil, berrors.NewDcv(berrors.FileValidationClientError, "host %q has no usable IPv4 or IPv6 addresses", host)
	}
	_ = t.nextIP()
	return t, nil
}

func validationURL(ip net.IP, path string, port int, useHTTPS bool) *url.URL {
	urlHost := ip.String()
	if port != 80 && port != 443 {
		urlHost = net.JoinHostPort(ip.String(), strconv.Itoa(port))
	} else if ip.To4() == nil {
		urlHost = "[" + urlHost + "]"
	}
	scheme := "http"
	if useHTTPS {
		scheme = "https"
	}
	return &url.URL{Scheme: scheme, Host: urlHost, Path: path}
}

func (c *Client) setupRequest(ctx context.Context, req *http.Request, t *target) (*http.Request, core.ValidationRecord, error) {
	record := core.ValidationRecord{
		Hostname:          t.host,
		Port:              strconv.Itoa(t.port),
		AddressesResolved: t.available,
		Timestamp:         time.Now(),
	}
	ip := t.cur
	if ip == nil {
		return nil, record, fmt.Errorf("host %q has no IP addresses remaining to use", t.host)
	}
	useHTTPS := req != nil && req.URL.Scheme == "https"
	u := validationURL(ip, t.path, t.port, useHTTPS)
	record.AddressUsed = ip.String()
	record.URL = u.String()

	if req == nil {
		var err error
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
		if err != nil {
			return nil, record, err
		}
		if c.cfg.UserAgent != "" {
			req.Header.Set("User-Agent", c.cfg.UserAgent)
		}
		req.Header.Set("Accept", "*/*")
	}
	req.URL = u
	req.Host = t.host
	return req, record, nil
}

func (c *Client) extractRedirectTarget(req *http.Request) (string, int, error) {
	if req == nil {
		return "", 0, fmt.Errorf("redirect request was nil")
	}
	scheme := req.URL.Scheme
	if scheme != "http" && scheme != "https" {
		return "", 0, berrors.NewDcv(berrors.FileValidationClientError, "unsupported redirect scheme %q", scheme)
	}
	host := req.URL.Host
	port := 0
	if h, p, err := net.SplitHostPort(host); err == nil {
		host = h
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, err
		}
		if port != c.cfg.HTTPPort && port != c.cfg.HTTPSPort {
			return "", 0, berrors.NewDcv(berrors.FileValidationClientError, "redirect to disallowed port %d", port)
		}
	} else if scheme == "http" {
		port = c.cfg.HTTPPort
	} else {
		port = c.cfg.HTTPSPort
	}
	if net.ParseIP(host) != nil {
		return "", 0, berrors.NewDcv(berrors.FileValidationClientError, "redirect to bare IP address %q not allowed", host)
	}
	return host, port, nil
}

// fallbackEligible reports whether err is a dial failure, the only failure
// mode worth retrying against the IPv4 fallback address.
func fallbackEligible(err error) bool {
	if err == nil {
		return false
	}
	switch e := err.(type) {
	case *url.Error:
		return fallbackEligible(e.Err)
	case *net.OpError:
		return e.Op == "dial"
	default:
		return false
	}
}

func (c *Client) httpClient(checkRedirect func(*http.Request, []*http.Request) error) *http.Client {
	transport := &http.Transport{
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			d := net.Dialer{Timeout: c.cfg.ConnectTimeout}
			return d.DialContext(ctx, network, addr)
		},
		TLSClientConfig:     &tls.Config{InsecureSkipVerify: true},
		DisableKeepAlives:   true,
		MaxIdleConns:        1,
		IdleConnTimeout:     time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	return &http.Client{
		Transport:     otelhttp.NewTransport(transport),
		CheckRedirect: checkRedirect,
		Timeout:       c.cfg.ReadTimeout,
	}
}

// Fetch performs the GET against host/path, following up to
// cfg.MaxRedirects redirects and falling back from an IPv6 dial failure to
// the host's first IPv4 address exactly once.
func (c *Client) Fetch(ctx context.Context, host, path string) (result *Result, err error) {
	start := time.Now()
	defer func() {
		label := "success"
		if err != nil {
			label = "failure"
		}
		c.metrics.fetchTime.WithLabelValues(label).Observe(time.Since(start).Seconds())
	}()

	t, err := c.newTarget(ctx, host, c.cfg.HTTPPort, path)
	if err != nil {
		return nil, err
	}

	initialReq, baseRecord, err := c.setupRequest(ctx, nil, t)
	if err != nil {
		return nil, berrors.WrapDcv(berrors.FileValidationClientError, err, "building request for %s", host)
	}
	c.log.AuditInfof("fetching %s for file validation of %s", initialReq.URL.String(), host)

	records := []core.ValidationRecord{baseRecord}
	numRedirects := 0
	checkRedirect := func(req *http.Request, via []*http.Request) error {
		if numRedirects >= c.cfg.MaxRedirects {
			return berrors.NewDcv(berrors.FileValidationClientError, "too many redirects")
		}
		numRedirects++
		c.metrics.redirects.Inc()

		redirHost, redirPort, err := c.extractRedirectTarget(req)
		if err != nil {
			return err
		}
		redirTarget, err := c.newTarget(ctx, redirHost, redirPort, req.URL.Path)
		if err != nil {
			return err
		}
		_, redirRecord, err := c.setupRequest(ctx, req, redirTarget)
		records = append(records, redirRecord)
		return err
	}

	client := c.httpClient(checkRedirect)
	resp, doErr := client.Do(initialReq)
	if doErr != nil && fallbackEligible(doErr) {
		if ipErr := t.nextIP(); ipErr == nil {
			c.metrics.ipv4Fallback.Inc()
			retryReq, retryRecord, rerr := c.setupRequest(ctx, nil, t)
			records = append(records, retryRecord)
			if rerr == nil {
				resp, doErr = client.Do(retryReq)
			}
		}
	}
	if doErr != nil {
		err = berrors.WrapDcv(berrors.FileValidationClientError, doErr, "fetching %s", host)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxResponseBytes))
	if err != nil {
		err = berrors.WrapDcv(berrors.FileValidationClientError, err, "reading response body from %s", host)
		return nil, err
	}
	if int64(len(body)) >= c.cfg.MaxResponseBytes {
		err = berrors.NewDcv(berrors.FileValidationInvalidContent, "response from %s exceeds %d byte cap", host, c.cfg.MaxResponseBytes)
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		err = berrors.NewDcv(berrors.FileValidationInvalidStatusCode, "unexpected status %d from %s", resp.StatusCode, host)
		return nil, err
	}
	if len(body) == 0 {
		err = berrors.NewDcv(berrors.FileValidationEmptyResponse, "empty response body from %s", host)
		return nil, err
	}

	return &Result{
		Body:    body,
		URL:     records[len(records)-1].URL,
		Records: records,
	}, nil
}

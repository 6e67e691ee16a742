// dcv-probe is a reference command-line driver for the domain control
// validation library: it loads a YAML config describing DNS resolvers and
// network perspectives, runs a single validation against a domain, and
// prints the resulting evidence record (or error) as JSON.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/jmhodges/clock"
	"gopkg.in/yaml.v3"

	"github.com/letsencrypt/dcv/bdns"
	"github.com/letsencrypt/dcv/core"
	"github.com/letsencrypt/dcv/emailprovider"
	"github.com/letsencrypt/dcv/features"
	"github.com/letsencrypt/dcv/fileclient"
	blog "github.com/letsencrypt/dcv/log"
	"github.com/letsencrypt/dcv/mpic"
	"github.com/letsencrypt/dcv/psl"
	"github.com/letsencrypt/dcv/va"
)

// fileConfig is the on-disk shape of -config.
type fileConfig struct {
	DNS struct {
		Servers []string      `yaml:"servers"`
		Timeout time.Duration `yaml:"timeout"`
		Retries int           `yaml:"retries"`
	} `yaml:"dns"`

	File struct {
		MaxRedirects     int           `yaml:"maxRedirects"`
		MaxResponseBytes int64         `yaml:"maxResponseBytes"`
		ConnectTimeout   time.Duration `yaml:"connectTimeout"`
		UserAgent        string        `yaml:"userAgent"`
	} `yaml:"file"`

	MPIC struct {
		Quorum        int           `yaml:"quorum"`
		TotalDeadline time.Duration `yaml:"totalDeadline"`
		Secondaries   int           `yaml:"secondaries"`
	} `yaml:"mpic"`

	Issuer struct {
		Domain             string   `yaml:"domain"`
		AccountURIPrefixes []string `yaml:"accountURIPrefixes"`
	} `yaml:"issuer"`

	Features features.Config `yaml:"features"`
}

func loadConfig(path string) (fileConfig, error) {
	var cfg fileConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	return cfg, nil
}

// localAgent adapts this process's own bdns.Client into an mpic.Agent, so
// dcv-probe can demonstrate MPIC corroboration without needing a fleet of
// remote perspectives. id distinguishes perspectives in evidence output even
// though they all probe through the same network path. ProbeFile re-fetches
// the exact URL (IP address already resolved) that the primary probe used,
// rather than re-resolving the hostname, matching how a secondary
// perspective corroborates the primary's own observation. ProbeDNS answers a
// CNAME query with the CNAME target and every other qtype with a TXT lookup.
type localAgent struct {
	id  string
	dns bdns.Client
}

func (a *localAgent) ID() string { return a.id }

func (a *localAgent) ProbeDNS(ctx context.Context, name, qtype string) ([]string, error) {
	if qtype == "CNAME" {
		target, err := a.dns.LookupCNAME(ctx, name)
		if err != nil || target == "" {
			return nil, err
		}
		return []string{target}, nil
	}
	txts, _, err := a.dns.LookupTXT(ctx, []string{name})
	return txts, err
}

func (a *localAgent) ProbeFile(ctx context.Context, rawURL string) (int, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return 0, "", err
	}
	sum := sha256.Sum256(body)
	return resp.StatusCode, hex.EncodeToString(sum[:]), nil
}

func main() {
	configPath := flag.String("config", "", "path to YAML configuration")
	domain := flag.String("domain", "", "domain name to validate")
	method := flag.String("method", "", "dns-change | file | acme-http-01 | acme-dns-01 | acme-dns-account-01")
	challengeType := flag.String("challenge-type", "random-value", "random-value | request-token")
	randomValue := flag.String("random-value", "", "expected RANDOM_VALUE secret")
	tokenKey := flag.String("token-key", "", "REQUEST_TOKEN key material")
	tokenValue := flag.String("token-value", "", "REQUEST_TOKEN value material")
	acmeToken := flag.String("acme-token", "", "ACME challenge token")
	thumbprint := flag.String("thumbprint", "", "ACME account key JWK thumbprint")
	accountURI := flag.String("account-uri", "", "ACME account URI, for dns-account-01")
	flag.Parse()

	if *configPath == "" || *domain == "" || *method == "" {
		fmt.Fprintln(os.Stderr, "usage: dcv-probe -config <path> -domain <name> -method <method> [...]")
		os.Exit(2)
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dcv-probe:", err)
		os.Exit(1)
	}
	features.Set(cfg.Features)

	log, err := blog.New("dcv-probe")
	if err != nil {
		fmt.Fprintln(os.Stderr, "dcv-probe:", err)
		os.Exit(1)
	}

	dnsClient, err := bdns.New(bdns.Config{
		Servers: cfg.DNS.Servers,
		Timeout: cfg.DNS.Timeout,
		Retries: cfg.DNS.Retries,
	}, log, nil)
	if err != nil {
		fmt.Fprintln(os.Stderr, "dcv-probe: constructing DNS client:", err)
		os.Exit(1)
	}

	fileClient := fileclient.New(fileclient.Config{
		MaxRedirects:     cfg.File.MaxRedirects,
		MaxResponseBytes: cfg.File.MaxResponseBytes,
		ConnectTimeout:   cfg.File.ConnectTimeout,
		UserAgent:        cfg.File.UserAgent,
	}, dnsClient, log, nil)

	pslHelper := psl.New(nil)
	emails := emailprovider.New(dnsClient, pslHelper)

	primary := &localAgent{id: "primary", dns: dnsClient}
	numSecondaries := cfg.MPIC.Secondaries
	if numSecondaries == 0 {
		numSecondaries = 2
	}
	secondaries := make([]mpic.Agent, numSecondaries)
	for i := range secondaries {
		secondaries[i] = &localAgent{id: fmt.Sprintf("secondary-%d", i+1), dns: dnsClient}
	}
	corroborator := mpic.New(primary, secondaries, log, nil)

	handlers := va.New(va.Config{
		MPICQuorum:         cfg.MPIC.Quorum,
		MPICTotalDeadline:  cfg.MPIC.TotalDeadline,
		IssuerDomain:       cfg.Issuer.Domain,
		AccountURIPrefixes: cfg.Issuer.AccountURIPrefixes,
	}, dnsClient, fileClient, emails, pslHelper, corroborator, clock.New(), log, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	var evidence interface{}
	switch *method {
	case "dns-change":
		ct := core.ChallengeRandomValue
		if *challengeType == "request-token" {
			ct = core.ChallengeRequestToken
		}
		prep, prepErr := handlers.PrepareDNSChange(*domain)
		if prepErr != nil {
			fail(prepErr)
		}
		evidence, err = handlers.ValidateDNSChange(ctx, *domain, prep.State, ct, *randomValue, *tokenKey, *tokenValue)
	case "file":
		ct := core.ChallengeRandomValue
		if *challengeType == "request-token" {
			ct = core.ChallengeRequestToken
		}
		prep, prepErr := handlers.PrepareFile(*domain)
		if prepErr != nil {
			fail(prepErr)
		}
		evidence, err = handlers.ValidateFile(ctx, *domain, prep.State, ct, *randomValue, *tokenKey, *tokenValue)
	case "acme-http-01":
		evidence, err = handlers.ValidateACMEHTTP01(ctx, *domain, *acmeToken, *thumbprint)
	case "acme-dns-01":
		evidence, err = handlers.ValidateACMEDNS01(ctx, *domain, *acmeToken, *thumbprint)
	case "acme-dns-account-01":
		evidence, err = handlers.ValidateDNSAccount01(ctx, *domain, *acmeToken, *thumbprint, *accountURI)
	default:
		fmt.Fprintf(os.Stderr, "dcv-probe: unknown method %q\n", *method)
		os.Exit(2)
	}
	if err != nil {
		fail(err)
	}

	out, err := json.MarshalIndent(evidence, "", "  ")
	if err != nil {
		fail(err)
	}
	fmt.Println(string(out))
}

func fail(err error) {
	fmt.Fprintln(os.Stderr, "dcv-probe: validation failed:", err)
	os.Exit(1)
}

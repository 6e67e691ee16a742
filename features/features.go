// Package features holds process-wide boolean feature flags. Config is
// loaded once at startup from the YAML config and set with Set; callers
// elsewhere in the library read flags with Enabled. Tests that need to
// exercise both sides of a flag call Set then Reset in a defer.
package features

import "sync"

// Feature names a single flag. New flags are added as new constants, never
// as ad-hoc strings, so that Config stays exhaustive.
type Feature int

const (
	_ Feature = iota

	// CAAAccountURIChecking enables comparison of the CAA accounturi
	// parameter against the ACME account that requested validation, per RFC
	// 8657.
	CAAAccountURIChecking

	// DNSAccountLabel enables the _<base32> DNS-ACCOUNT-01 label variant
	// for DNS-01 validation.
	DNSAccountLabel

	// MPICEnforcement is carried in Config and reported by Enabled, but no
	// component reads it: the method handlers require quorum corroboration
	// whether it is set or not.
	MPICEnforcement

	// IPv6First is carried in Config and reported by Enabled, but no
	// component reads it: fileclient always tries an IPv6 address first
	// when the resolver returns one, whether it is set or not.
	IPv6First
)

// Config is the full set of flags, as loaded from YAML. Every field
// defaults to its Go zero value (false) unless explicitly set.
type Config struct {
	CAAAccountURIChecking bool `yaml:"caaAccountURIChecking"`
	DNSAccountLabel       bool `yaml:"dnsAccountLabel"`
	MPICEnforcement       bool `yaml:"mpicEnforcement"`
	IPv6First             bool `yaml:"ipv6First"`
}

var (
	mu      sync.RWMutex
	current Config
)

// Set replaces the process-wide flag set wholesale.
func Set(c Config) {
	mu.Lock()
	defer mu.Unlock()
	current = c
}

// Reset restores every flag to false. Tests call this in a defer after Set.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = Config{}
}

// Get returns a copy of the current flag set.
func Get() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Enabled reports whether a single named flag is currently set.
func Enabled(f Feature) bool {
	mu.RLock()
	defer mu.RUnlock()
	switch f {
	case CAAAccountURIChecking:
		return current.CAAAccountURIChecking
	case DNSAccountLabel:
		return current.DNSAccountLabel
	case MPICEnforcement:
		return current.MPICEnforcement
	case IPv6First:
		return current.IPv6First
	default:
		return false
	}
}

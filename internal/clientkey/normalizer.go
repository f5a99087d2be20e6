// Package clientkey derives stable rate-limiting keys from client
// addresses.
//
// IPv4 addresses are used as-is. IPv6 addresses are collapsed to their
// enclosing subnet so a client cannot dodge a limit by rotating through
// the low bits of its own /56 or /64; sibling addresses share one key.
// Canonicalizing an IPv6 address is expensive relative to the rest of the
// request hot path, so results are memoized in a bounded FIFO cache.
package clientkey

import (
	"errors"
	"net/netip"
	"strings"
)

// NoSubnet disables IPv6 subnet collapsing: Normalize returns every input
// unchanged.
const NoSubnet = 0

// DefaultCacheSize bounds the normalization cache when no explicit
// capacity is configured.
const DefaultCacheSize = 10000

// ErrInvalidSubnetSize is returned when collapsing is requested with a
// prefix length outside 1..128.
var ErrInvalidSubnetSize = errors.New("subnet size must be between 1 and 128")

// Normalizer maps raw address strings to canonical rate-limiting keys.
type Normalizer struct {
	cache *Cache
}

// NewNormalizer creates a normalizer with a cache of at most cacheSize
// memoized results.
func NewNormalizer(cacheSize int) *Normalizer {
	return &Normalizer{cache: NewCache(cacheSize)}
}

// Normalize returns the rate-limiting key for ip.
//
// With subnetBits == NoSubnet, or when ip is not a valid IPv6 address
// (plain IPv4, 4-in-6 mapped, or anything malformed), ip is returned
// unchanged; malformed input is deliberately not an error so the
// normalizer never rejects what the caller already accepted. Otherwise the
// result is the canonical compressed form of the address's subnet start,
// e.g. "2001:db8:85a3::/56".
//
// Any key-derivation logic built on top of this package that needs a
// bare-IP fallback must route the fallback through Normalize as well,
// rather than using the raw address directly; otherwise IPv6 clients
// bypass collapsing entirely by varying their low address bits.
func (n *Normalizer) Normalize(ip string, subnetBits int) (string, error) {
	if subnetBits == NoSubnet {
		return ip, nil
	}

	if subnetBits < 1 || subnetBits > 128 {
		return "", ErrInvalidSubnetSize
	}

	// No colon, no IPv6: skip parsing entirely on the common IPv4 path.
	if strings.IndexByte(ip, ':') < 0 {
		return ip, nil
	}

	if cached, ok := n.cache.Get(ip, subnetBits); ok {
		return cached, nil
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil || !addr.Is6() || addr.Is4In6() {
		return ip, nil
	}

	prefix, err := addr.Prefix(subnetBits)
	if err != nil {
		return ip, nil
	}

	result := prefix.String()
	n.cache.Add(ip, subnetBits, result)

	return result, nil
}

// CachedKeys returns the number of memoized results currently held.
func (n *Normalizer) CachedKeys() int {
	return n.cache.Len()
}

// CacheStats returns the cumulative cache hit and miss counts.
func (n *Normalizer) CacheStats() (hits, misses int64) {
	return n.cache.Stats()
}

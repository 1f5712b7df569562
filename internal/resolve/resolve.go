// Package resolve looks up the target host before a run starts.
package resolve

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"github.com/rs/zerolog"
)

// Lookup is the subset of *net.Resolver used here.
type Lookup interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// Resolver resolves hostnames to a single address, preferring IPv4.
type Resolver struct {
	lookup Lookup
	logger zerolog.Logger
}

// New returns a Resolver. A nil lookup uses net.DefaultResolver.
func New(lookup Lookup, logger zerolog.Logger) *Resolver {
	if lookup == nil {
		lookup = net.DefaultResolver
	}
	return &Resolver{lookup: lookup, logger: logger}
}

// Resolve returns an address for host. IP literals are returned without a
// lookup.
func (r *Resolver) Resolve(ctx context.Context, host string) (netip.Addr, error) {
	if addr, err := netip.ParseAddr(host); err == nil {
		return addr, nil
	}
	addrs, err := r.lookup.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("resolve %s: %w", host, err)
	}
	if len(addrs) == 0 {
		return netip.Addr{}, fmt.Errorf("resolve %s: no addresses", host)
	}
	chosen := addrs[0]
	for _, a := range addrs {
		if a.Unmap().Is4() {
			chosen = a
			break
		}
	}
	chosen = chosen.Unmap()
	r.logger.Info().Str("host", host).Stringer("addr", chosen).Msg("host resolved")
	return chosen, nil
}

package guard

import "net/netip"

// Class is the routing category of a single IP address.
type Class string

const (
	ClassPublic      Class = "public"
	ClassPrivate     Class = "private"
	ClassLoopback    Class = "loopback"
	ClassLinkLocal   Class = "link_local"
	ClassReserved    Class = "reserved"
	ClassMulticast   Class = "multicast"
	ClassUnspecified Class = "unspecified"
)

// Special-purpose IPv4 ranges that netip still reports as global unicast.
var reservedV4 = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),       // "this network"
	netip.MustParsePrefix("100.64.0.0/10"),   // shared address space (CGNAT)
	netip.MustParsePrefix("192.0.0.0/24"),    // IETF protocol assignments
	netip.MustParsePrefix("192.0.2.0/24"),    // TEST-NET-1
	netip.MustParsePrefix("192.88.99.0/24"),  // 6to4 relay anycast
	netip.MustParsePrefix("198.18.0.0/15"),   // benchmarking
	netip.MustParsePrefix("198.51.100.0/24"), // TEST-NET-2
	netip.MustParsePrefix("203.0.113.0/24"),  // TEST-NET-3
	netip.MustParsePrefix("240.0.0.0/4"),     // future use, includes broadcast
}

// IPv6 unicast space actually delegated for the public internet.
var globalV6 = netip.MustParsePrefix("2000::/3")

// Special-purpose ranges inside 2000::/3.
var reservedV6 = []netip.Prefix{
	netip.MustParsePrefix("2001::/23"),     // IETF protocol assignments, Teredo, ORCHID
	netip.MustParsePrefix("2001:db8::/32"), // documentation
	netip.MustParsePrefix("2002::/16"),     // 6to4
	netip.MustParsePrefix("3fff::/20"),     // documentation
}

// Classify returns the category of addr. IPv4-mapped IPv6 addresses are
// classified as the IPv4 address they carry, and zones are ignored.
// An invalid address is reserved.
func Classify(addr netip.Addr) Class {
	if !addr.IsValid() {
		return ClassReserved
	}
	addr = addr.WithZone("").Unmap()

	switch {
	case addr.IsUnspecified():
		return ClassUnspecified
	case addr.IsLoopback():
		return ClassLoopback
	case addr.IsMulticast():
		return ClassMulticast
	case addr.IsLinkLocalUnicast():
		return ClassLinkLocal
	case addr.IsPrivate():
		return ClassPrivate
	case isReserved(addr):
		return ClassReserved
	case !addr.IsGlobalUnicast():
		return ClassReserved
	}
	return ClassPublic
}

// IsPublic reports whether addr is global unicast and falls in none of the
// non-public categories.
func IsPublic(addr netip.Addr) bool {
	return Classify(addr) == ClassPublic
}

func isReserved(addr netip.Addr) bool {
	if addr.Is4() {
		for _, p := range reservedV4 {
			if p.Contains(addr) {
				return true
			}
		}
		return false
	}
	if !globalV6.Contains(addr) {
		return true
	}
	for _, p := range reservedV6 {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

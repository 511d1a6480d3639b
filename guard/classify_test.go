package guard

import (
	"net/netip"
	"testing"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		addr string
		want Class
	}{
		{"8.8.8.8", ClassPublic},
		{"93.184.216.34", ClassPublic},
		{"2606:4700:4700::1111", ClassPublic},
		{"2a00:1450:4001:82b::200e", ClassPublic},
		{"10.1.2.3", ClassPrivate},
		{"172.31.255.255", ClassPrivate},
		{"192.168.0.1", ClassPrivate},
		{"fd00::1", ClassPrivate},
		{"127.0.0.1", ClassLoopback},
		{"::1", ClassLoopback},
		{"::ffff:127.0.0.1", ClassLoopback},
		{"169.254.169.254", ClassLinkLocal},
		{"fe80::1", ClassLinkLocal},
		{"fe80::1%en0", ClassLinkLocal},
		{"224.0.0.251", ClassMulticast},
		{"239.255.255.250", ClassMulticast},
		{"ff05::2", ClassMulticast},
		{"0.0.0.0", ClassUnspecified},
		{"::", ClassUnspecified},
		{"0.1.2.3", ClassReserved},
		{"100.64.0.1", ClassReserved},
		{"100.127.255.254", ClassReserved},
		{"192.0.0.8", ClassReserved},
		{"192.0.2.1", ClassReserved},
		{"192.88.99.1", ClassReserved},
		{"198.19.0.1", ClassReserved},
		{"198.51.100.7", ClassReserved},
		{"203.0.113.9", ClassReserved},
		{"240.0.0.1", ClassReserved},
		{"255.255.255.255", ClassReserved},
		{"2001:db8::1", ClassReserved},
		{"2001::1", ClassReserved},
		{"2002:c000:0204::1", ClassReserved},
		{"64:ff9b::7f00:1", ClassReserved},
		{"100::1", ClassReserved},
		{"fec0::1", ClassReserved},
	}
	for _, tc := range cases {
		t.Run(tc.addr, func(t *testing.T) {
			got := Classify(netip.MustParseAddr(tc.addr))
			if got != tc.want {
				t.Fatalf("Classify(%s) = %q, want %q", tc.addr, got, tc.want)
			}
			if IsPublic(netip.MustParseAddr(tc.addr)) != (tc.want == ClassPublic) {
				t.Fatalf("IsPublic(%s) disagrees with Classify", tc.addr)
			}
		})
	}
}

func TestClassify_InvalidAddr(t *testing.T) {
	if got := Classify(netip.Addr{}); got != ClassReserved {
		t.Fatalf("Classify(zero) = %q, want %q", got, ClassReserved)
	}
}

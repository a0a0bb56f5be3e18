package server

import (
	"errors"
	"net/netip"
	"testing"

	"github.com/momentics/hioload-tls/api"
)

func TestAdmission(t *testing.T) {
	a := newAdmission(&Config{
		AllowList:      []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8"), netip.MustParsePrefix("::1/128")},
		DenyList:       []netip.Prefix{netip.MustParsePrefix("10.6.6.0/24")},
		MaxConnections: 2,
	})
	cases := []struct {
		addr string
		err  error
	}{
		{"10.1.2.3:1000", nil},
		{"[::ffff:10.1.2.4]:1000", nil},
		{"10.6.6.6:1000", api.ErrConnectionRefused},
		{"192.168.1.1:1000", api.ErrConnectionRefused},
		{"[::1]:1000", api.ErrResourceExhausted},
	}
	for _, tc := range cases {
		err := a.Admit(netip.MustParseAddrPort(tc.addr))
		if tc.err == nil && err != nil || tc.err != nil && !errors.Is(err, tc.err) {
			t.Errorf("%s: got %v, want %v", tc.addr, err, tc.err)
		}
	}
	if a.Live() != 2 {
		t.Fatalf("live = %d", a.Live())
	}
	a.Release()
	if err := a.Admit(netip.MustParseAddrPort("[::1]:1000")); err != nil {
		t.Errorf("admit after release: %v", err)
	}
}

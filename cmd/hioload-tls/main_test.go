package main

import (
	"crypto/tls"
	"net/netip"
	"testing"
)

func TestParsePrefixes(t *testing.T) {
	got, err := parsePrefixes("10.1.2.3/8, 192.168.0.1,::1")
	if err != nil {
		t.Fatal(err)
	}
	want := []netip.Prefix{
		netip.MustParsePrefix("10.0.0.0/8"),
		netip.MustParsePrefix("192.168.0.1/32"),
		netip.MustParsePrefix("::1/128"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%d: got %v, want %v", i, got[i], want[i])
		}
	}
	if _, err := parsePrefixes("10.0.0.0/33"); err == nil {
		t.Fatal("bad prefix accepted")
	}
}

func TestTLSConfigFlags(t *testing.T) {
	tc, err := tlsConfig("", "", "", "request", "1.3")
	if err != nil {
		t.Fatal(err)
	}
	if tc.MinVersion != tls.VersionTLS13 || tc.ClientAuth != tls.RequestClientCert || len(tc.Certificates) != 1 {
		t.Fatalf("unexpected config: min %x auth %v certs %d", tc.MinVersion, tc.ClientAuth, len(tc.Certificates))
	}
	if _, err := tlsConfig("", "", "", "verify", "1.2"); err == nil {
		t.Fatal("verify without CA accepted")
	}
	if _, err := tlsConfig("", "", "", "none", "1.1"); err == nil {
		t.Fatal("TLS 1.1 accepted")
	}
}

// File: cmd/hioload-tls/main.go
// Package main
// HTTPS server answering GET and HEAD with a fixed message.
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package main

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"flag"
	"fmt"
	"log"
	"net/netip"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/momentics/hioload-tls/control"
	"github.com/momentics/hioload-tls/internal/selfsigned"
	"github.com/momentics/hioload-tls/server"
)

func main() {
	addr := flag.String("addr", "0.0.0.0:8443", "listen address")
	workers := flag.Int("workers", runtime.NumCPU(), "reactor threads")
	certFile := flag.String("cert", "", "PEM certificate chain (empty: self-signed)")
	keyFile := flag.String("key", "", "PEM private key")
	clientCA := flag.String("client-ca", "", "PEM bundle of client certificate authorities")
	clientAuth := flag.String("client-auth", "none", "client certificates: none|request|require|verify")
	tlsMin := flag.String("tls-min", "1.2", "minimum TLS version: 1.2|1.3")
	maxConns := flag.Int("max-conns", 0, "connection ceiling (0 = unlimited)")
	allow := flag.String("allow", "", "comma-separated CIDRs allowed to connect")
	deny := flag.String("deny", "", "comma-separated CIDRs refused")
	edge := flag.Bool("edge", false, "edge-triggered registrations")
	pin := flag.Bool("pin", false, "pin each worker to a CPU")
	dist := flag.String("distribution", server.DistributionRoundRobin, "round-robin|least-loaded")
	message := flag.String("root-message", "hello from hioload-tls\n", "response body")
	report := flag.Bool("report", false, "print metrics and probes on exit")
	flag.Parse()

	tc, err := tlsConfig(*certFile, *keyFile, *clientCA, *clientAuth, *tlsMin)
	if err != nil {
		log.Fatalf("tls: %v", err)
	}
	allowList, err := parsePrefixes(*allow)
	if err != nil {
		log.Fatalf("-allow: %v", err)
	}
	denyList, err := parsePrefixes(*deny)
	if err != nil {
		log.Fatalf("-deny: %v", err)
	}

	srv, err := server.New(server.StaticHandler{Message: *message},
		server.WithAddr(*addr),
		server.WithTLSConfig(tc),
		server.WithWorkers(*workers),
		server.WithDistributor(*dist),
		server.WithEdgeTriggered(*edge),
		server.WithCPUAffinity(*pin),
		server.WithMaxConnections(*maxConns),
		server.WithAllowList(allowList...),
		server.WithDenyList(denyList...),
	)
	if err != nil {
		log.Fatalf("failed to create server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = srv.ListenAndServe(ctx)
	if *report {
		_ = control.WriteReport(os.Stdout, srv.Probes(), srv.Metrics())
	}
	if err != nil {
		log.Fatalf("server: %v", err)
	}
}

func tlsConfig(certFile, keyFile, clientCA, clientAuth, minVersion string) (*tls.Config, error) {
	var tc *tls.Config
	if certFile == "" {
		cfg, _, err := selfsigned.ServerConfig()
		if err != nil {
			return nil, err
		}
		log.Printf("no -cert given, using a self-signed certificate")
		tc = cfg
	} else {
		cert, err := tls.LoadX509KeyPair(certFile, keyFile)
		if err != nil {
			return nil, err
		}
		tc = &tls.Config{Certificates: []tls.Certificate{cert}}
	}
	switch minVersion {
	case "1.2":
		tc.MinVersion = tls.VersionTLS12
	case "1.3":
		tc.MinVersion = tls.VersionTLS13
	default:
		return nil, fmt.Errorf("unknown TLS version %q", minVersion)
	}
	switch clientAuth {
	case "none":
		tc.ClientAuth = tls.NoClientCert
	case "request":
		tc.ClientAuth = tls.RequestClientCert
	case "require":
		tc.ClientAuth = tls.RequireAnyClientCert
	case "verify":
		tc.ClientAuth = tls.RequireAndVerifyClientCert
	default:
		return nil, fmt.Errorf("unknown client auth policy %q", clientAuth)
	}
	if clientCA != "" {
		pem, err := os.ReadFile(clientCA)
		if err != nil {
			return nil, err
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("%s: no certificates found", clientCA)
		}
		tc.ClientCAs = pool
		if tc.ClientAuth == tls.RequireAnyClientCert {
			tc.ClientAuth = tls.RequireAndVerifyClientCert
		}
	} else if tc.ClientAuth == tls.RequireAndVerifyClientCert {
		return nil, fmt.Errorf("-client-auth=verify needs -client-ca")
	}
	return tc, nil
}

func parsePrefixes(s string) ([]netip.Prefix, error) {
	if s == "" {
		return nil, nil
	}
	var out []netip.Prefix
	for _, f := range strings.Split(s, ",") {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if !strings.Contains(f, "/") {
			a, err := netip.ParseAddr(f)
			if err != nil {
				return nil, err
			}
			out = append(out, netip.PrefixFrom(a, a.BitLen()))
			continue
		}
		p, err := netip.ParsePrefix(f)
		if err != nil {
			return nil, err
		}
		out = append(out, p.Masked())
	}
	return out, nil
}

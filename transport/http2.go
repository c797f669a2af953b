// Package transport builds the mTLS/HTTP2 client the controller client
// rides on.
package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"
)

// DialTimeout is the connect timeout named by §6 ("connect timeout ~15s").
const DialTimeout = 15 * time.Second

// Config holds the material needed to build an mTLS HTTP/2 client.
type Config struct {
	CertPath string
	KeyPath  string
	CAPath   string

	// DisableKeepAlives defaults to true (§6: "Keepalive disabled by
	// default") when left nil; set explicitly to false to opt back in.
	DisableKeepAlives *bool
}

// Build creates an HTTP/2 client with mTLS 1.3, matching §6's transport
// knobs: keepalive disabled by default, ~15s connect timeout.
func Build(cfg Config) (*http.Client, error) {
	if cfg.CertPath == "" {
		return nil, fmt.Errorf("certPath required")
	}
	if cfg.KeyPath == "" {
		return nil, fmt.Errorf("keyPath required")
	}
	if cfg.CAPath == "" {
		return nil, fmt.Errorf("caPath required")
	}

	clientCert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load client certificate: %w", err)
	}

	caCert, err := os.ReadFile(cfg.CAPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}

	// mTLS 1.3 configuration
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{clientCert},
		RootCAs:      caCertPool,
		MinVersion:   tls.VersionTLS13,
		MaxVersion:   tls.VersionTLS13,
	}

	disableKeepAlives := true
	if cfg.DisableKeepAlives != nil {
		disableKeepAlives = *cfg.DisableKeepAlives
	}

	dialer := &net.Dialer{Timeout: DialTimeout}

	transport := &http2.Transport{
		TLSClientConfig:   tlsConfig,
		DisableKeepAlives: disableKeepAlives,
		DialTLSContext: func(ctx context.Context, network, addr string, tlsCfg *tls.Config) (net.Conn, error) {
			rawConn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return tls.Client(rawConn, tlsCfg), nil
		},
	}

	client := &http.Client{
		Transport: transport,
	}

	return client, nil
}

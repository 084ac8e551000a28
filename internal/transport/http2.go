package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/net/http2"

	"github.com/oshokin/vibration-alarm/internal/config"
)

const (
	maxIdleConns        = 16
	idleConnTimeout     = 90 * time.Second
	tlsHandshakeTimeout = 10 * time.Second
)

var (
	errIncompleteKeyPair = errors.New("cert_file and key_file must be set together")
	errBadCA             = errors.New("no certificates found in CA file")
)

// NewHTTPClient returns a client whose transport negotiates HTTP/2 over TLS.
// With a client certificate configured the connection uses mutual TLS 1.3.
func NewHTTPClient(cfg config.TLS, timeout time.Duration) (*http.Client, error) {
	tlsConfig, err := buildTLSConfig(cfg)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		TLSClientConfig:       tlsConfig,
		MaxIdleConns:          maxIdleConns,
		IdleConnTimeout:       idleConnTimeout,
		TLSHandshakeTimeout:   tlsHandshakeTimeout,
		ExpectContinueTimeout: time.Second,
	}

	if err = http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("configure http2: %w", err)
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}

func buildTLSConfig(cfg config.TLS) (*tls.Config, error) {
	tlsConfig := &tls.Config{
		MinVersion: tls.VersionTLS12,
	}

	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, errIncompleteKeyPair
	}

	if cfg.CertFile != "" {
		clientCert, err := tls.LoadX509KeyPair(filepath.Clean(cfg.CertFile), filepath.Clean(cfg.KeyFile))
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}

		tlsConfig.Certificates = []tls.Certificate{clientCert}
		tlsConfig.MinVersion = tls.VersionTLS13
	}

	if cfg.CAFile != "" {
		caCert, err := os.ReadFile(filepath.Clean(cfg.CAFile))
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}

		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errBadCA
		}

		tlsConfig.RootCAs = pool
	}

	return tlsConfig, nil
}

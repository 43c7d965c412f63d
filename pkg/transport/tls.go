package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/uxr-project/uxr-go/pkg/version"
)

const (
	// ALPNProtocol is the ALPN identifier negotiated on TLS connections.
	ALPNProtocol = version.ALPN

	// DefaultPort is the default TCP port of the service.
	DefaultPort = 7420
)

// TLSConfig holds the material for an optional TLS layer.
type TLSConfig struct {
	// Certificate is this endpoint's certificate. Required for servers,
	// optional for clients.
	Certificate tls.Certificate

	// RootCAs verifies the server on the client side. Nil uses the system pool.
	RootCAs *x509.CertPool

	// ClientCAs enables mutual TLS on the server side when set.
	ClientCAs *x509.CertPool

	// ServerName is the expected server name on the client side.
	ServerName string

	// InsecureSkipVerify disables server verification. Testing only.
	InsecureSkipVerify bool
}

var errNoCertificate = errors.New("certificate is required")

// NewServerTLSConfig builds a TLS 1.3 server configuration.
func NewServerTLSConfig(cfg TLSConfig) (*tls.Config, error) {
	if len(cfg.Certificate.Certificate) == 0 {
		return nil, fmt.Errorf("server: %w", errNoCertificate)
	}

	tc := &tls.Config{
		MinVersion:             tls.VersionTLS13,
		Certificates:           []tls.Certificate{cfg.Certificate},
		NextProtos:             []string{ALPNProtocol},
		CurvePreferences:       []tls.CurveID{tls.X25519, tls.CurveP256},
		SessionTicketsDisabled: true,
	}
	if cfg.ClientCAs != nil {
		tc.ClientAuth = tls.RequireAndVerifyClientCert
		tc.ClientCAs = cfg.ClientCAs
	}
	return tc, nil
}

// NewClientTLSConfig builds a TLS 1.3 client configuration.
func NewClientTLSConfig(cfg TLSConfig) *tls.Config {
	tc := &tls.Config{
		MinVersion:         tls.VersionTLS13,
		RootCAs:            cfg.RootCAs,
		ServerName:         cfg.ServerName,
		NextProtos:         []string{ALPNProtocol},
		CurvePreferences:   []tls.CurveID{tls.X25519, tls.CurveP256},
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
	if len(cfg.Certificate.Certificate) > 0 {
		tc.Certificates = []tls.Certificate{cfg.Certificate}
	}
	return tc
}

// LoadServerTLSConfig reads a PEM certificate and key pair from disk.
func LoadServerTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("load key pair: %w", err)
	}
	return NewServerTLSConfig(TLSConfig{Certificate: cert})
}

// VerifyConnection checks the negotiated version and ALPN protocol.
func VerifyConnection(state tls.ConnectionState) error {
	if state.Version != tls.VersionTLS13 {
		return fmt.Errorf("TLS version %x is not TLS 1.3", state.Version)
	}
	major, err := version.MajorFromALPN(state.NegotiatedProtocol)
	if err != nil {
		return err
	}
	if !version.SupportedMajor(major) {
		return fmt.Errorf("protocol major version %d is not supported", major)
	}
	return nil
}

package server

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/mepad/mepad-server/internal/config"
)

var (
	ErrInvalidTLSMode = errors.New("invalid TLS mode")
	ErrMissingCert    = errors.New("missing certificate or key file")
)

const selfSignedValidity = 365 * 24 * time.Hour

// TLSManager turns the tls section of the config into a usable tls.Config.
// Mode "off" yields nil (plain HTTP), "static" loads an operator-supplied
// pair, "selfsigned" generates a throwaway development certificate and keeps
// it on disk across restarts.
type TLSManager struct {
	cfg    *config.TLSConfig
	logger *slog.Logger
}

func NewTLSManager(cfg *config.TLSConfig, logger *slog.Logger) *TLSManager {
	return &TLSManager{cfg: cfg, logger: logger}
}

// GetTLSConfig resolves the configured mode for the given hostname.
func (m *TLSManager) GetTLSConfig(hostname string) (*tls.Config, error) {
	switch m.cfg.Mode {
	case "off":
		return nil, nil
	case "static":
		return m.staticConfig()
	case "selfsigned":
		return m.selfSignedConfig(hostname)
	}
	return nil, fmt.Errorf("%w: %s", ErrInvalidTLSMode, m.cfg.Mode)
}

func serverTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
	}
}

func (m *TLSManager) staticConfig() (*tls.Config, error) {
	if m.cfg.CertFile == "" || m.cfg.KeyFile == "" {
		return nil, ErrMissingCert
	}
	cert, err := tls.LoadX509KeyPair(m.cfg.CertFile, m.cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load certificate: %w", err)
	}
	m.logger.Info("loaded static TLS certificate", "cert_file", m.cfg.CertFile, "key_file", m.cfg.KeyFile)
	return serverTLSConfig(cert), nil
}

func (m *TLSManager) selfSignedConfig(hostname string) (*tls.Config, error) {
	dir := m.cfg.SelfSignedDir
	if dir == "" {
		dir = ".mepad/certs"
	}
	certFile := filepath.Join(dir, "server.crt")
	keyFile := filepath.Join(dir, "server.key")

	// Reuse a pair left behind by a previous run.
	if cert, err := tls.LoadX509KeyPair(certFile, keyFile); err == nil {
		m.logger.Info("loaded existing self-signed certificate", "cert_file", certFile)
		return serverTLSConfig(cert), nil
	}

	cert, err := m.generateSelfSigned(hostname, certFile, keyFile)
	if err != nil {
		return nil, err
	}
	return serverTLSConfig(cert), nil
}

func (m *TLSManager) generateSelfSigned(hostname, certFile, keyFile string) (tls.Certificate, error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate key: %w", err)
	}
	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to generate serial: %w", err)
	}

	now := time.Now()
	template := x509.Certificate{
		SerialNumber: serial,
		Subject: pkix.Name{
			Organization: []string{"MePad Development"},
			CommonName:   hostname,
		},
		NotBefore:             now,
		NotAfter:              now.Add(selfSignedValidity),
		KeyUsage:              x509.KeyUsageKeyEncipherment | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
	}

	// SANs cover the configured hostname plus loopback so local tooling can
	// connect without flag juggling.
	if ip := net.ParseIP(hostname); ip != nil {
		template.IPAddresses = append(template.IPAddresses, ip)
	} else {
		template.DNSNames = append(template.DNSNames, hostname)
	}
	template.DNSNames = append(template.DNSNames, "localhost")
	template.IPAddresses = append(template.IPAddresses, net.ParseIP("127.0.0.1"), net.ParseIP("::1"))

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create certificate: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(certFile), 0700); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to create cert directory: %w", err)
	}
	certPEM := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(certFile, certPEM, 0644); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to write certificate: %w", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to marshal key: %w", err)
	}
	keyPEM := pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})
	if err := os.WriteFile(keyFile, keyPEM, 0600); err != nil {
		return tls.Certificate{}, fmt.Errorf("failed to write key: %w", err)
	}

	m.logger.Info("generated self-signed certificate",
		"hostname", hostname,
		"cert_file", certFile,
		"expires", template.NotAfter)

	return tls.X509KeyPair(certPEM, keyPEM)
}

package wiring

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	app_errors "github.com/spounge-ai/sysaudit/internal/errors"
	"github.com/spounge-ai/sysaudit/internal/infra/config"
)

var clientAuthModes = map[string]tls.ClientAuthType{
	"":                           tls.NoClientCert,
	"NoClientCert":               tls.NoClientCert,
	"RequestClientCert":          tls.RequestClientCert,
	"RequireAnyClientCert":       tls.RequireAnyClientCert,
	"VerifyClientCertIfGiven":    tls.VerifyClientCertIfGiven,
	"RequireAndVerifyClientCert": tls.RequireAndVerifyClientCert,
}

// ConfigureTLS builds the API server TLS configuration. It returns nil when
// TLS is disabled.
func ConfigureTLS(cfg config.ServerTLSConfig) (*tls.Config, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	serverCert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load server TLS key pair: %w: %w", app_errors.ErrConfig, err)
	}

	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{serverCert},
		MinVersion:   tls.VersionTLS12,
	}

	if cfg.ClientCAFile != "" {
		caCert, err := os.ReadFile(cfg.ClientCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client CA file: %w: %w", app_errors.ErrConfig, err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("client CA file %s holds no certificates: %w", cfg.ClientCAFile, app_errors.ErrConfig)
		}
		tlsConfig.ClientCAs = pool
	}

	mode, ok := clientAuthModes[cfg.ClientAuth]
	if !ok {
		return nil, fmt.Errorf("unsupported client_auth type %q: %w", cfg.ClientAuth, app_errors.ErrConfig)
	}
	tlsConfig.ClientAuth = mode
	if mode >= tls.VerifyClientCertIfGiven && tlsConfig.ClientCAs == nil {
		return nil, fmt.Errorf("client_auth %s needs client_ca_file: %w", cfg.ClientAuth, app_errors.ErrConfig)
	}

	return tlsConfig, nil
}

// Package transport adapts internal/httpclient's SSRF-protected client
// into the VEN client's single HTTP operation: an XML POST to the VTN,
// with the protocol's 5s connect / 10s read timeouts and optional mTLS.
package transport

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/openadr-ven/client/errors"
	"github.com/openadr-ven/client/internal/httpclient"
	"github.com/openadr-ven/client/logger"
	"github.com/openadr-ven/client/ven"
)

// Config carries the mTLS material and timeout overrides for Transport.
type Config struct {
	CertPath      string
	KeyPath       string
	CAFile        string
	Passphrase    string
	CheckHostname bool

	ConnectTimeout time.Duration // default 5s
	ReadTimeout    time.Duration // default 10s
}

func (c Config) withDefaults() Config {
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.ReadTimeout <= 0 {
		c.ReadTimeout = 10 * time.Second
	}
	return c
}

// HTTPTransport is the default ven.Transport implementation.
type HTTPTransport struct {
	client *httpclient.SaferClient
}

var _ ven.Transport = (*HTTPTransport)(nil)

// New builds an HTTPTransport. When cfg.CertPath is set, the client
// presents a client certificate and validates the VTN's certificate
// against cfg.CAFile, with hostname verification controlled by
// CheckHostname — the protocol's optional XML-signature / mTLS security
// material.
func New(cfg Config) (*HTTPTransport, error) {
	cfg = cfg.withDefaults()

	client := httpclient.NewSaferClient(cfg.ConnectTimeout + cfg.ReadTimeout)

	if cfg.CertPath != "" {
		tlsConfig, err := buildTLSConfig(cfg)
		if err != nil {
			return nil, errors.Wrap(err, "transport: build TLS config")
		}
		if rt, ok := client.Client.Transport.(*http.Transport); ok {
			rt.TLSClientConfig = tlsConfig
		} else {
			client.Client.Transport = &http.Transport{
				TLSClientConfig: tlsConfig,
				DialContext: (&net.Dialer{
					Timeout: cfg.ConnectTimeout,
				}).DialContext,
			}
		}
	}

	return &HTTPTransport{client: client}, nil
}

func buildTLSConfig(cfg Config) (*tls.Config, error) {
	cert, err := loadClientCertificate(cfg.CertPath, cfg.KeyPath, cfg.Passphrase)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	if cfg.CAFile != "" {
		caPEM, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, errors.Wrapf(err, "transport: read CA file %s", cfg.CAFile)
		}
		if !pool.AppendCertsFromPEM(caPEM) {
			return nil, errors.Newf("transport: no certificates found in CA file %s", cfg.CAFile)
		}
	}

	return &tls.Config{
		Certificates:       []tls.Certificate{cert},
		RootCAs:             pool,
		InsecureSkipVerify:  !cfg.CheckHostname,
		MinVersion:          tls.VersionTLS12,
	}, nil
}

func loadClientCertificate(certPath, keyPath, passphrase string) (tls.Certificate, error) {
	if passphrase != "" {
		return tls.Certificate{}, errors.New("transport: encrypted private keys are not supported; provide a decrypted key file")
	}
	cert, err := tls.LoadX509KeyPair(certPath, keyPath)
	if err != nil {
		return tls.Certificate{}, errors.Wrapf(err, "transport: load client cert/key pair (%s, %s)", certPath, keyPath)
	}
	return cert, nil
}

// Post sends body as an application/xml POST to url and returns the
// response body and status code.
func (t *HTTPTransport) Post(ctx context.Context, url string, body []byte) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, 0, errors.Wrap(err, "transport: build request")
	}
	req.Header.Set("Content-Type", "application/xml")

	if logger.ShouldShowHTTPBody(logger.CurrentVerbosity) {
		logger.Debugw("posting request", "url", url, "body", string(body))
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, 0, errors.Wrap(err, "transport: POST failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, errors.Wrap(err, "transport: read response body")
	}

	if logger.ShouldShowHTTPStatus(logger.CurrentVerbosity) {
		logger.Debugw("received response", "url", url, "status", resp.StatusCode)
	}
	if logger.ShouldShowHTTPBody(logger.CurrentVerbosity) {
		logger.Debugw("response body", "url", url, "body", string(respBody))
	}

	return respBody, resp.StatusCode, nil
}

// ABOUTME: HTTP transport for reaching the backend, optionally through an SSH+SOCKS5 jumpbox
// ABOUTME: Parses API_ALL_PROXY and lazily builds the SOCKS5 dialer on first use

package services

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	proxy "github.com/cloudfoundry/socks5-proxy"
)

// NewTransport returns the transport used for all backend calls. When allProxy is
// set (ssh+socks5://user@host:port?private-key=/path/to/key) connections are
// tunnelled through the jumpbox.
func NewTransport(allProxy string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 10 * time.Second

	if allProxy == "" {
		return transport, nil
	}

	dial, err := socks5DialContext(allProxy)
	if err != nil {
		return nil, err
	}
	transport.DialContext = dial
	transport.Proxy = nil
	return transport, nil
}

// socks5DialContext creates a dial function for SSH+SOCKS5 proxy connections.
func socks5DialContext(allProxy string) (func(ctx context.Context, network, address string) (net.Conn, error), error) {
	proxyURL, err := url.Parse(strings.TrimPrefix(allProxy, "ssh+"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse API_ALL_PROXY: %w", err)
	}
	if proxyURL.Host == "" {
		return nil, fmt.Errorf("API_ALL_PROXY has no host")
	}

	username := ""
	if proxyURL.User != nil {
		username = proxyURL.User.Username()
	}

	keyPath := proxyURL.Query().Get("private-key")
	if keyPath == "" {
		return nil, fmt.Errorf("API_ALL_PROXY missing required 'private-key' query param")
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH private key %s: %w", keyPath, err)
	}

	socks5Proxy := proxy.NewSocks5Proxy(proxy.NewHostKey(), log.Default(), 1*time.Minute)

	var (
		dialer proxy.DialFunc
		mut    sync.Mutex
	)

	return func(ctx context.Context, network, address string) (net.Conn, error) {
		mut.Lock()
		if dialer == nil {
			d, err := socks5Proxy.Dialer(username, string(key), proxyURL.Host)
			if err != nil {
				mut.Unlock()
				return nil, fmt.Errorf("error creating SOCKS5 dialer: %w", err)
			}
			slog.Info("SOCKS5 tunnel established", "jumpbox", proxyURL.Host)
			dialer = d
		}
		d := dialer
		mut.Unlock()

		return d(network, address)
	}, nil
}

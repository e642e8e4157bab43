// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package service

import (
	"crypto/tls"
	"fmt"
	"net"
	"os"

	"river/internal/config"
)

// Listener pairs the net.Listener workers actually Accept() on (TLS-wrapped
// when configured) with the raw *net.TCPListener underneath it, so the
// hot-reload controller can still retrieve the bare socket's file
// descriptor (spec.md §4.5) even when TLS wraps the serving side.
type Listener struct {
	Config config.ListenerConfig
	net.Listener
	raw *net.TCPListener
}

// NewListener binds a fresh socket for cfg, wrapping it in TLS when
// cfg.TLSConfigured().
func NewListener(cfg config.ListenerConfig) (*Listener, error) {
	raw, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("service: listen %s: %w", cfg.Address, err)
	}
	return wrapListener(cfg, raw.(*net.TCPListener))
}

// NewListenerFromFile rebuilds a Listener from a file descriptor handed
// off by a predecessor process during hot reload (spec.md §4.5).
func NewListenerFromFile(cfg config.ListenerConfig, f *os.File) (*Listener, error) {
	raw, err := net.FileListener(f)
	if err != nil {
		return nil, fmt.Errorf("service: FileListener for %s: %w", cfg.Address, err)
	}
	tcpListener, ok := raw.(*net.TCPListener)
	if !ok {
		return nil, fmt.Errorf("service: fd for %s is not a TCP listener", cfg.Address)
	}
	return wrapListener(cfg, tcpListener)
}

func wrapListener(cfg config.ListenerConfig, raw *net.TCPListener) (*Listener, error) {
	if !cfg.TLSConfigured() {
		return &Listener{Config: cfg, Listener: raw, raw: raw}, nil
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("service: load TLS cert for %s: %w", cfg.Address, err)
	}
	tlsConf := &tls.Config{Certificates: []tls.Certificate{cert}}
	if cfg.OfferH2 {
		tlsConf.NextProtos = []string{"h2", "http/1.1"}
	} else {
		tlsConf.NextProtos = []string{"http/1.1"}
	}
	return &Listener{Config: cfg, Listener: tls.NewListener(raw, tlsConf), raw: raw}, nil
}

// File returns the underlying OS file descriptor for the listener's raw
// socket, for handing off at hot-reload time.
func (l *Listener) File() (*os.File, error) {
	return l.raw.File()
}

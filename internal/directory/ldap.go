// Package directory reads the tenant's team address book from LDAP.
package directory

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/go-ldap/ldap/v3"

	"github.com/sonroyaalmerol/webmail-contacts/internal/config"
)

func tlsConfigFor(hostPort string, insecure bool) *tls.Config {
	tlsConfig := &tls.Config{InsecureSkipVerify: insecure}
	if host, _, err := net.SplitHostPort(hostPort); err == nil && host != "" {
		tlsConfig.ServerName = host
	} else {
		tlsConfig.ServerName = hostPort
	}
	return tlsConfig
}

func dialLDAP(cfg config.TeamDirectoryConfig) (*ldap.Conn, error) {
	u := strings.TrimSpace(cfg.URL)
	if u == "" {
		return nil, errors.New("LDAP URL is empty")
	}

	lower := strings.ToLower(u)
	isLDAPS := strings.HasPrefix(lower, "ldaps://")
	isLDAP := strings.HasPrefix(lower, "ldap://")
	if !isLDAP && !isLDAPS {
		return nil, errors.New("URL must start with ldap:// or ldaps://")
	}

	var conn *ldap.Conn
	var err error
	if isLDAPS {
		conn, err = ldap.DialURL(u, ldap.DialWithTLSConfig(tlsConfigFor(u[len("ldaps://"):], cfg.InsecureSkipVerify)))
		if err != nil {
			return nil, err
		}
	} else {
		conn, err = ldap.DialURL(u)
		if err != nil {
			return nil, err
		}
		if cfg.RequireTLS {
			if err := conn.StartTLS(tlsConfigFor(u[len("ldap://"):], cfg.InsecureSkipVerify)); err != nil {
				conn.Close()
				return nil, fmt.Errorf("StartTLS failed: %w", err)
			}
		}
	}

	if cfg.BindDN != "" {
		if err := conn.Bind(cfg.BindDN, cfg.BindPassword); err != nil {
			conn.Close()
			return nil, err
		}
	}
	return conn, nil
}

func safeAttr(a string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' || r == '_' {
			return r
		}
		return -1
	}, a)
}

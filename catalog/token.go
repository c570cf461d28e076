package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"gamedex/core"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/singleflight"
)

// tokenSafetyMargin is subtracted from the declared token lifetime.
const tokenSafetyMargin = 60 * time.Second

// TokenSource supplies bearer tokens for catalog requests.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenManager caches a client-credentials bearer token and refreshes it
// once the declared lifetime, minus a safety margin, has elapsed.
type TokenManager struct {
	config     clientcredentials.Config
	httpClient *http.Client
	now        func() time.Time
	log        *logrus.Entry

	mu     sync.Mutex
	token  string
	expiry time.Time

	group singleflight.Group
}

// NewTokenManager creates a TokenManager for the given client credentials.
func NewTokenManager(clientID, clientSecret, tokenURL string, httpClient *http.Client) *TokenManager {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &TokenManager{
		config: clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     tokenURL,
			AuthStyle:    oauth2.AuthStyleInParams,
		},
		httpClient: httpClient,
		now:        time.Now,
		log:        logrus.WithField("component", "token-manager"),
	}
}

// Token returns the cached token while it is usable, otherwise performs a
// client-credentials exchange. Concurrent refreshes share one exchange.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	if token, ok := m.cached(); ok {
		return token, nil
	}

	v, err, _ := m.group.Do("token", func() (any, error) {
		// Another caller may have refreshed while we waited to enter Do.
		if token, ok := m.cached(); ok {
			return token, nil
		}
		return m.refresh(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// Expiry returns the time after which the cached token is refreshed.
func (m *TokenManager) Expiry() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.expiry
}

func (m *TokenManager) cached() (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.token != "" && m.now().Before(m.expiry) {
		return m.token, true
	}
	return "", false
}

func (m *TokenManager) refresh(ctx context.Context) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	tok, err := m.config.Token(ctx)
	if err != nil {
		m.log.WithError(err).Error("Client credentials exchange failed")
		return "", fmt.Errorf("%w: %v", core.ErrUpstreamAuth, err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", core.ErrUpstreamAuth)
	}

	lifetime := declaredLifetime(tok)
	now := m.now()

	m.mu.Lock()
	m.token = tok.AccessToken
	m.expiry = now.Add(lifetime - tokenSafetyMargin)
	m.mu.Unlock()

	m.log.WithField("lifetime", lifetime).Debug("Obtained catalog access token")
	return tok.AccessToken, nil
}

// declaredLifetime reads expires_in from the raw token response, falling back
// to the expiry computed by the oauth2 package.
func declaredLifetime(tok *oauth2.Token) time.Duration {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return time.Duration(v) * time.Second
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return time.Duration(n) * time.Second
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return time.Duration(n) * time.Second
		}
	}
	if tok.Expiry.IsZero() {
		return 0
	}
	return time.Until(tok.Expiry)
}

package app

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/artpar/datagate/domain/call"
	"github.com/artpar/datagate/ports"
)

// CredentialTarget receives a refreshed credential. Both HTTPExecutor
// and credential-carrying transports satisfy it.
type CredentialTarget interface {
	SetCredential(c call.Credential)
}

// CredentialRefresh is the output interceptor behind login flows: it
// watches valid responses, extracts a bearer token and installs it on
// its targets so later calls are authenticated without the caller
// resupplying anything.
type CredentialRefresh struct {
	// tokenPath is a dot-separated path into the JSON response. Empty
	// means the whole output is the token.
	tokenPath string
	logger    zerolog.Logger

	mu      sync.Mutex
	targets []CredentialTarget
}

var _ ports.OutputInterceptor = (*CredentialRefresh)(nil)

// NewCredentialRefresh creates a refresh interceptor extracting the
// token at tokenPath.
func NewCredentialRefresh(tokenPath string, logger zerolog.Logger, targets ...CredentialTarget) *CredentialRefresh {
	return &CredentialRefresh{
		tokenPath: tokenPath,
		logger:    logger,
		targets:   targets,
	}
}

// AddTarget registers another credential receiver.
func (r *CredentialRefresh) AddTarget(t CredentialTarget) {
	r.mu.Lock()
	r.targets = append(r.targets, t)
	r.mu.Unlock()
}

// Intercept extracts and installs a credential from a valid response.
// Responses without a token are left alone; extraction never fails the
// call.
func (r *CredentialRefresh) Intercept(_ context.Context, o ports.Interception) error {
	if !o.Valid {
		return nil
	}
	raw := o.Filtered
	if raw == nil {
		raw = o.Original
	}
	if raw == nil {
		return nil
	}

	token, ok := r.extract(raw)
	if !ok {
		return nil
	}

	cred := call.Bearer(token)
	r.mu.Lock()
	targets := make([]CredentialTarget, len(r.targets))
	copy(targets, r.targets)
	r.mu.Unlock()

	for _, t := range targets {
		t.SetCredential(cred)
	}
	r.logger.Info().
		Str("path", r.tokenPath).
		Int("targets", len(targets)).
		Msg("credential refreshed from response")
	return nil
}

// extract resolves the token from the output. With no path configured
// the whole output is stringified; otherwise the output is parsed as
// JSON and the path walked through nested objects.
func (r *CredentialRefresh) extract(raw any) (string, bool) {
	if r.tokenPath == "" {
		s := call.Stringify(raw)
		return s, s != ""
	}

	parsed, err := call.ParseOutput(call.KindJSON, raw)
	if err != nil {
		return "", false
	}

	current := parsed
	for _, part := range strings.Split(r.tokenPath, ".") {
		obj, ok := current.(map[string]any)
		if !ok {
			return "", false
		}
		current, ok = obj[part]
		if !ok {
			return "", false
		}
	}
	if current == nil {
		return "", false
	}
	s := call.Stringify(current)
	return s, s != ""
}

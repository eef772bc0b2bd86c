package core

import (
	"context"
	"sync"

	"recipebox/internal/types"
)

// MockAuthenticator is an Authenticator for handler and middleware tests.
// ResolveTokenFunc wins over Actor/Err when set.
type MockAuthenticator struct {
	Actor            *types.Actor
	Err              error
	ResolveTokenFunc func(ctx context.Context, token string) (*types.Actor, error)

	mu    sync.Mutex
	Calls []string
}

// ResolveToken records token and returns the configured result.
func (m *MockAuthenticator) ResolveToken(ctx context.Context, token string) (*types.Actor, error) {
	m.mu.Lock()
	m.Calls = append(m.Calls, token)
	m.mu.Unlock()

	if m.ResolveTokenFunc != nil {
		return m.ResolveTokenFunc(ctx, token)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Actor, nil
}

var _ Authenticator = (*MockAuthenticator)(nil)

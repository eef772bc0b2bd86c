package persistence

import (
	"context"
	"encoding/json"
	"sync"

	"recipebox/internal/local"
	"recipebox/internal/types"
)

// Identity is the signed-in caller as seen by the device. The zero value
// means nobody is signed in.
type Identity struct {
	UserID string
	Token  types.SecretString
}

// Authenticated reports whether i carries a usable identity.
func (i Identity) Authenticated() bool {
	return i.UserID != "" && i.Token != ""
}

// IdentitySource tracks who is signed in on this device.
type IdentitySource interface {
	Current(ctx context.Context) (Identity, error)
	Set(ctx context.Context, id Identity) error
	Clear(ctx context.Context) error
}

// MemoryIdentity holds the identity for the lifetime of the process.
type MemoryIdentity struct {
	mu sync.RWMutex
	id Identity
}

// Current returns the recorded identity, or the zero Identity.
func (m *MemoryIdentity) Current(context.Context) (Identity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.id, nil
}

// Set records id as the signed-in identity.
func (m *MemoryIdentity) Set(_ context.Context, id Identity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = id
	return nil
}

// Clear forgets the identity.
func (m *MemoryIdentity) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = Identity{}
	return nil
}

// StoredIdentity keeps the identity in the device store so it survives
// restarts of the CLI.
type StoredIdentity struct {
	store local.Store
}

// NewStoredIdentity returns an IdentitySource backed by store.
func NewStoredIdentity(store local.Store) *StoredIdentity {
	return &StoredIdentity{store: store}
}

// storedIdentity is the on-disk form. SecretString redacts itself when
// marshaled, so the token is copied into a plain field.
type storedIdentity struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// Current reads the identity from the device store. A missing or malformed
// entry reads as signed out.
func (s *StoredIdentity) Current(ctx context.Context) (Identity, error) {
	raw, err := s.store.Get(ctx, local.KeySession)
	if err != nil || raw == nil {
		return Identity{}, err
	}
	var rec storedIdentity
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Identity{}, nil
	}
	return Identity{UserID: rec.UserID, Token: types.SecretString(rec.Token)}, nil
}

// Set writes id to the device store with the token unmasked.
func (s *StoredIdentity) Set(ctx context.Context, id Identity) error {
	raw, err := json.Marshal(storedIdentity{UserID: id.UserID, Token: id.Token.Unmask()})
	if err != nil {
		return err
	}
	return s.store.Put(ctx, local.KeySession, raw)
}

// Clear deletes the stored identity.
func (s *StoredIdentity) Clear(ctx context.Context) error {
	return s.store.Delete(ctx, local.KeySession)
}

package auth

import (
	"context"
	"fmt"

	"gwi.com/aiclone/internal/common"
	"gwi.com/aiclone/internal/config"
	"gwi.com/aiclone/internal/store"
)

// Identity is an authenticated principal.
type Identity struct {
	ID       string `json:"id,omitempty"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Role     string `json:"role"`
}

// CredentialSource checks a username/secret pair. ok is false when the
// source cannot vouch for the pair, letting the next source try.
type CredentialSource interface {
	Lookup(ctx context.Context, username, password string) (id *Identity, ok bool, err error)
}

// Authenticator consults its sources in order; the first that vouches wins.
type Authenticator struct {
	sources []CredentialSource
}

func NewAuthenticator(sources ...CredentialSource) *Authenticator {
	return &Authenticator{sources: sources}
}

var errBadCredentials = common.Unauthorized("Invalid username or password")

func (a *Authenticator) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	if username == "" || password == "" {
		return nil, errBadCredentials
	}
	for _, src := range a.sources {
		id, ok, err := src.Lookup(ctx, username, password)
		if err != nil {
			return nil, err
		}
		if ok {
			return id, nil
		}
	}
	return nil, errBadCredentials
}

type builtinAccount struct {
	identity Identity
	hash     string
}

// BuiltinSource is the static credential table loaded from configuration.
type BuiltinSource struct {
	accounts map[string]builtinAccount
}

func NewBuiltinSource(accounts []config.Account) (*BuiltinSource, error) {
	src := &BuiltinSource{accounts: make(map[string]builtinAccount, len(accounts))}
	for _, acc := range accounts {
		hash, err := HashPassword(acc.Password)
		if err != nil {
			return nil, fmt.Errorf("builtin account %s: %w", acc.Username, err)
		}
		src.accounts[acc.Username] = builtinAccount{
			identity: Identity{Username: acc.Username, Email: acc.Email, Role: acc.Role},
			hash:     hash,
		}
	}
	return src, nil
}

func (b *BuiltinSource) Lookup(_ context.Context, username, password string) (*Identity, bool, error) {
	acc, exists := b.accounts[username]
	if !exists || !CheckPasswordHash(password, acc.hash) {
		return nil, false, nil
	}
	id := acc.identity
	return &id, true, nil
}

// StoreSource authenticates against persisted users.
type StoreSource struct {
	users store.UserStore
}

func NewStoreSource(users store.UserStore) *StoreSource {
	return &StoreSource{users: users}
}

func (s *StoreSource) Lookup(ctx context.Context, username, password string) (*Identity, bool, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, false, fmt.Errorf("failed to look up user %s: %w", username, err)
	}
	if user == nil || !CheckPasswordHash(password, user.PasswordHash) {
		return nil, false, nil
	}
	if !user.IsActive {
		return nil, false, common.Forbidden("Account is disabled")
	}
	return &Identity{ID: user.ID, Username: user.Username, Email: user.Email, Role: user.Role}, true, nil
}

func IsSuperadmin(role string) bool {
	return role == store.RoleSuperadmin
}

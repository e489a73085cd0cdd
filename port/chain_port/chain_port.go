package chain_port

import (
	"context"

	"imagehoster/domain"
)

// AccountReader is the slice of the chain RPC surface the service
// consumes: account authorities and profiles.
type AccountReader interface {
	// GetAccount returns the account record, or nil when no such
	// account exists.
	GetAccount(ctx context.Context, name string) (*domain.Account, error)
	// GetProfile returns the bridge profile record, or nil when no such
	// account exists.
	GetProfile(ctx context.Context, name string) (*domain.Profile, error)
}

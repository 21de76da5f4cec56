package store

import (
	"context"
	"time"

	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

type IdentityStore interface {
	GetIdentity(ctx context.Context, id string) (types.Identity, error)
	ListIdentities(ctx context.Context) ([]types.Identity, error)
	UpsertIdentity(ctx context.Context, ident types.Identity) error
	SetQRBlock(ctx context.Context, id string, blocked bool, reason string, at time.Time) error
}

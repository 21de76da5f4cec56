package store

import (
	"context"

	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

// SettingsStore holds the single attendance policy row.  GetSettings returns
// a copy; callers never observe a later PutSettings through it.
type SettingsStore interface {
	GetSettings(ctx context.Context) (types.Settings, error)
	PutSettings(ctx context.Context, s types.Settings) error
}

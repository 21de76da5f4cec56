package notify

import (
	"context"
	"errors"

	"github.com/civicdesk/rollcall/internal/rollcall/types"
)

// Publisher is what every sink implements.
type Publisher interface {
	Publish(ctx context.Context, ev types.PunchEvent) error
}

// Multi publishes to every sink and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev types.PunchEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Publish(context.Context, types.PunchEvent) error { return nil }

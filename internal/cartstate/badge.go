package cartstate

import (
	"context"

	"go.uber.org/zap"

	"github.com/leedontbeshy/unimerch-client/internal/notify"
)

// Subscriber hands out notifier subscriptions.
type Subscriber interface {
	Subscribe() *notify.Subscription
}

// Badge keeps an item count in step with cart changes made anywhere in
// the process. Expired sessions show as zero.
type Badge struct {
	store    *Store
	source   Subscriber
	logger   *zap.Logger
	onChange func(count int)
}

func NewBadge(carts CartAPI, source Subscriber, logger *zap.Logger, onChange func(count int)) *Badge {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Badge{
		store:    NewStore(carts, nil, nil, logger, Options{AutoFetch: true, SuppressAuthErrors: true}),
		source:   source,
		logger:   logger,
		onChange: onChange,
	}
}

// Run loads the count and re-fetches on every broadcast until ctx is done.
func (b *Badge) Run(ctx context.Context) {
	sub := b.source.Subscribe()
	b.refresh(ctx, -1)
	notify.Listen(ctx, sub, func(ctx context.Context) {
		b.refresh(ctx, b.Count())
	})
}

func (b *Badge) refresh(ctx context.Context, before int) {
	if _, err := b.store.Refresh(ctx); err != nil {
		b.logger.Debug("badge refresh failed", zap.Error(err))
		return
	}
	if after := b.Count(); after != before && b.onChange != nil {
		b.onChange(after)
	}
}

func (b *Badge) Count() int {
	return b.store.TotalItems()
}

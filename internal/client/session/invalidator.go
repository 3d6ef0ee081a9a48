package session

import (
	"context"

	"github.com/dmitrijs2005/tillapos/internal/client/credentials"
	"github.com/dmitrijs2005/tillapos/internal/logging"
)

// Invalidator is the single path that logs the user out after an
// irrecoverable authentication failure.
type Invalidator struct {
	store    credentials.Store
	notifier Notifier
	logger   logging.Logger
}

func NewInvalidator(store credentials.Store, notifier Notifier, logger logging.Logger) *Invalidator {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Invalidator{store: store, notifier: notifier, logger: logger}
}

// Invalidate clears the credential store and notifies. A failing clear is
// logged and never reported to the caller; the notification always happens.
func (i *Invalidator) Invalidate(ctx context.Context) {
	if err := i.store.Clear(ctx); err != nil {
		i.logger.Error(ctx, "failed to clear credential store", "error", err)
	}
	i.logger.Warn(ctx, "session invalidated")
	i.notifier.OnSessionInvalidated(ctx)
}

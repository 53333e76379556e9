package events

import "context"

// NopBus discards events. Used when EventStoreDB is unavailable and in tests.
type NopBus struct{}

var _ EventBus = NopBus{}

func (NopBus) Publish(ctx context.Context, event Event) error { return nil }

func (NopBus) Subscribe(ctx context.Context, pattern string, handler Handler) error { return nil }

func (NopBus) Close() {}

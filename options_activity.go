package videocfg

import (
	"context"

	"github.com/goliatone/go-videoconfig/pkg/activity"
)

type activityConfig struct {
	hooks   activity.Hooks
	channel string
}

// WithActivityHooks attaches audit hooks. Nil entries are dropped.
func WithActivityHooks(hooks activity.Hooks) ManagerOption {
	hooks = hooks.Compact()
	return func(cfg *managerConfig) {
		cfg.activity.hooks = hooks
	}
}

// WithActivityChannel sets the channel stamped on recorded events. The
// default is activity.DefaultChannel.
func WithActivityChannel(channel string) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.activity.channel = channel
	}
}

// ActivityHooks returns a copy of the configured hooks.
func (m *Manager) ActivityHooks() activity.Hooks {
	if m == nil {
		return nil
	}
	return m.cfg.activity.hooks.Compact()
}

// emit records event. Hook failures are logged and never fail the
// settings operation that produced the event.
func (m *Manager) emit(ctx context.Context, event activity.Event) {
	if err := m.recorder.Record(ctx, event); err != nil {
		m.logger.Warn("activity hook failed", "verb", event.Verb, "object", event.Object.String(), "error", err)
	}
}

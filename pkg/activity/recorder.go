package activity

import "context"

// DefaultChannel is stamped on events recorded without a channel.
const DefaultChannel = "videoconfig"

// Recorder stamps the session actor and channel onto events before they
// reach the hooks. A nil Recorder records nothing.
type Recorder struct {
	hooks   Hooks
	channel string
	actorID string
}

// NewRecorder returns nil when hooks holds no usable hook.
func NewRecorder(hooks Hooks, channel, actorID string) *Recorder {
	hooks = hooks.Compact()
	if len(hooks) == 0 {
		return nil
	}
	if channel == "" {
		channel = DefaultChannel
	}
	return &Recorder{hooks: hooks, channel: channel, actorID: actorID}
}

// Active reports whether Record reaches any hook.
func (r *Recorder) Active() bool {
	return r != nil
}

// Record fills the actor and channel when the event leaves them blank and
// notifies the hooks.
func (r *Recorder) Record(ctx context.Context, event Event) error {
	if r == nil {
		return nil
	}
	if event.ActorID == "" {
		event.ActorID = r.actorID
	}
	if event.Channel == "" {
		event.Channel = r.channel
	}
	return r.hooks.Notify(ctx, event)
}

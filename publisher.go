package videocfg

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// ActiveConfig is the immutable snapshot render code reads. Once published
// it never changes; later edits only affect future snapshots.
type ActiveConfig struct {
	set         *OptionSet
	id          string
	generation  uint64
	publishedAt time.Time
	frozen      bool
}

// Get returns the published value of key.
func (a *ActiveConfig) Get(key string) (any, bool) { return a.set.Get(key) }

// Bool returns the published value of a bool option.
func (a *ActiveConfig) Bool(key string) bool { return a.set.Bool(key) }

// Int returns the published value of an int or enum option.
func (a *ActiveConfig) Int(key string) int { return a.set.Int(key) }

// Float returns the published value of a float option.
func (a *ActiveConfig) Float(key string) float64 { return a.set.Float(key) }

// StringValue returns the published value of a string option.
func (a *ActiveConfig) StringValue(key string) string { return a.set.StringValue(key) }

// Map returns a copy of every published value.
func (a *ActiveConfig) Map() map[string]any { return a.set.Map() }

// Snapshot returns a mutable copy of the published set.
func (a *ActiveConfig) Snapshot() *OptionSet { return a.set.Clone() }

// ID identifies the publication.
func (a *ActiveConfig) ID() string { return a.id }

// Generation increases by one with every publication.
func (a *ActiveConfig) Generation() uint64 { return a.generation }

// PublishedAt is when the snapshot was taken.
func (a *ActiveConfig) PublishedAt() time.Time { return a.publishedAt }

// Frozen reports whether the values came from a recording's frozen config.
func (a *ActiveConfig) Frozen() bool { return a.frozen }

// PublishEnv is the environment publish rules are evaluated against.
type PublishEnv struct {
	Capabilities CapabilityDescriptor
	// AlternateFrameBufferDisabled mirrors the host's global switch that
	// turns off the alternate output frame buffer mode.
	AlternateFrameBufferDisabled bool
	// Replaying is set while a recording with a frozen config is authoritative.
	Replaying bool
}

// PublishRule adjusts the published copy without touching the edit buffer.
type PublishRule struct {
	Name  string
	When  func(PublishEnv) bool
	Apply func(*OptionSet)
}

// ForceValue returns a rule that sets key to value whenever when holds.
func ForceValue(name, key string, value any, when func(PublishEnv) bool) PublishRule {
	return PublishRule{
		Name:  name,
		When:  when,
		Apply: func(set *OptionSet) { _ = set.Set(key, value) },
	}
}

// Recorder is the input-recording subsystem. While Authoritative, its frozen
// configuration replaces the edit buffer as the source of published values.
type Recorder interface {
	Authoritative() bool
	FrozenConfig() *OptionSet
}

// PublisherOption configures a Publisher.
type PublisherOption func(*Publisher)

// WithPublishRuleSet sets the rules applied to every published copy.
func WithPublishRuleSet(rules ...PublishRule) PublisherOption {
	return func(p *Publisher) {
		p.rules = append(p.rules, rules...)
	}
}

// WithPublishRecorder attaches the recording subsystem.
func WithPublishRecorder(recorder Recorder) PublisherOption {
	return func(p *Publisher) {
		p.recorder = recorder
	}
}

// WithPublishEnvironment supplies the environment rules are evaluated in.
func WithPublishEnvironment(env func() PublishEnv) PublisherOption {
	return func(p *Publisher) {
		if env != nil {
			p.env = env
		}
	}
}

// Publisher copies the edit buffer into ActiveConfig snapshots. Readers call
// Active from any goroutine; Publish is serialised.
type Publisher struct {
	mu         sync.Mutex
	active     atomic.Pointer[ActiveConfig]
	generation uint64
	rules      []PublishRule
	recorder   Recorder
	env        func() PublishEnv
}

// NewPublisher builds a publisher with no active snapshot.
func NewPublisher(opts ...PublisherOption) *Publisher {
	p := &Publisher{env: func() PublishEnv { return PublishEnv{} }}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Publish snapshots edit, applies the publish rules to the copy and swaps it
// in as the active configuration. edit itself is never modified.
func (p *Publisher) Publish(edit *OptionSet) *ActiveConfig {
	p.mu.Lock()
	defer p.mu.Unlock()

	env := p.env()
	source := edit
	frozen := false
	if p.recorder != nil && p.recorder.Authoritative() {
		if cfg := p.recorder.FrozenConfig(); cfg != nil {
			source = cfg
			frozen = true
			env.Replaying = true
		}
	}

	snapshot := source.Clone()
	for _, rule := range p.rules {
		if rule.Apply == nil {
			continue
		}
		if rule.When == nil || rule.When(env) {
			rule.Apply(snapshot)
		}
	}

	p.generation++
	active := &ActiveConfig{
		set:         snapshot,
		id:          uuid.NewString(),
		generation:  p.generation,
		publishedAt: time.Now().UTC(),
		frozen:      frozen,
	}
	p.active.Store(active)
	return active
}

// Active returns the current snapshot, or nil before the first Publish.
func (p *Publisher) Active() *ActiveConfig {
	return p.active.Load()
}

package videocfg

import (
	"log/slog"
)

// ManagerOption configures a Manager.
type ManagerOption func(*managerConfig)

type managerConfig struct {
	store         LayerStore
	provider      CapabilityProvider
	caps          *CapabilityDescriptor
	notifier      Notifier
	recorder      Recorder
	logger        *slog.Logger
	validator     *Validator
	publishRules  []PublishRule
	activity      activityConfig
	evalLogger    EvaluatorLogger
	altFBDisabled func() bool
	actorID       string
	lateBaseline  bool
}

func applyManagerOptions(opts []ManagerOption) managerConfig {
	cfg := managerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	if cfg.notifier == nil {
		cfg.notifier = noopNotifier{}
	}
	if cfg.validator == nil {
		cfg.validator = NewValidator()
	}
	if cfg.evalLogger == nil {
		cfg.evalLogger = SlogEvaluatorLogger(cfg.logger)
	}
	if cfg.altFBDisabled == nil {
		cfg.altFBDisabled = func() bool { return false }
	}
	return cfg
}

// WithStore sets the persistence collaborator.
func WithStore(store LayerStore) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.store = store
	}
}

// WithCapabilities fixes the backend capabilities instead of querying a
// provider.
func WithCapabilities(caps CapabilityDescriptor) ManagerOption {
	return func(cfg *managerConfig) {
		c := caps.Clone()
		cfg.caps = &c
	}
}

// WithCapabilityProvider sets the backend queried on load and Requery.
func WithCapabilityProvider(provider CapabilityProvider) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.provider = provider
	}
}

// WithNotifier sets the on-screen message sink.
func WithNotifier(notifier Notifier) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.notifier = notifier
	}
}

// WithRecorder attaches the input-recording subsystem.
func WithRecorder(recorder Recorder) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.recorder = recorder
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.logger = logger
	}
}

// WithValidator sets the capability rule table.
func WithValidator(validator *Validator) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.validator = validator
	}
}

// WithPublishRules sets the rules applied to every published snapshot.
func WithPublishRules(rules ...PublishRule) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.publishRules = append(cfg.publishRules, rules...)
	}
}

// WithEvaluatorLogger records expression rule evaluations.
func WithEvaluatorLogger(logger EvaluatorLogger) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.evalLogger = logger
	}
}

// WithAlternateFrameBufferDisabled reports the host's global switch for the
// alternate output frame buffer mode. It is read on every Publish.
func WithAlternateFrameBufferDisabled(disabled func() bool) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.altFBDisabled = disabled
	}
}

// WithActor stamps emitted activity events with the acting user.
func WithActor(actorID string) ManagerOption {
	return func(cfg *managerConfig) {
		cfg.actorID = actorID
	}
}

// WithBaselineAfterOverrides captures the title baseline after the title
// layer is applied instead of before it, so saved per-title tuning does not
// count as an unsaved modification.
func WithBaselineAfterOverrides() ManagerOption {
	return func(cfg *managerConfig) {
		cfg.lateBaseline = true
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	videocfg "github.com/goliatone/go-videoconfig"
	"github.com/goliatone/go-videoconfig/internal/appconfig"
	"github.com/goliatone/go-videoconfig/pkg/activity"
	"github.com/goliatone/go-videoconfig/pkg/state"
	"github.com/goliatone/go-videoconfig/render"
)

type commandContext struct {
	configFlag *string
	verbose    *bool

	configOnce sync.Once
	config     *appconfig.Config
	configErr  error
}

func newCommandContext(configFlag *string, verbose *bool) *commandContext {
	return &commandContext{configFlag: configFlag, verbose: verbose}
}

func (c *commandContext) ensureConfig() (*appconfig.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := appconfig.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) logger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if cfg, err := c.ensureConfig(); err == nil {
		_ = level.UnmarshalText([]byte(cfg.LogLevel))
	}
	if c.verbose != nil && *c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// session is an open store plus a manager loaded for one title.
type session struct {
	cfg     *appconfig.Config
	store   state.Store
	manager *videocfg.Manager
	logger  *slog.Logger
}

type sessionTarget struct {
	title    string
	revision string
}

func (t *sessionTarget) bind(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&t.title, "title", "t", "", "Title identifier to apply (e.g. GALE01)")
	cmd.Flags().StringVarP(&t.revision, "revision", "r", "", "Title revision for revision-specific defaults")
}

// withSession opens the configured store, builds a manager, loads the global
// layer and applies target's title, then calls fn.
func (c *commandContext) withSession(cmd *cobra.Command, target sessionTarget, fn func(context.Context, *session) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	logger := c.logger(cmd)

	store, closer, err := cfg.OpenStore(ctx)
	if err != nil {
		return fmt.Errorf("open layer store: %w", err)
	}
	defer closer.Close()

	manager, err := c.newManager(cmd, cfg, store, logger)
	if err != nil {
		return err
	}
	if err := manager.LoadGlobal(ctx); err != nil {
		return fmt.Errorf("load global layer: %w", err)
	}
	if strings.TrimSpace(target.title) != "" {
		if _, err := manager.ApplyTitle(ctx, strings.TrimSpace(target.title), strings.TrimSpace(target.revision)); err != nil {
			return fmt.Errorf("apply title %s: %w", target.title, err)
		}
	} else if target.revision != "" {
		return fmt.Errorf("--revision requires --title")
	}
	return fn(ctx, &session{cfg: cfg, store: store, manager: manager, logger: logger})
}

func (c *commandContext) newManager(cmd *cobra.Command, cfg *appconfig.Config, store state.Store, logger *slog.Logger) (*videocfg.Manager, error) {
	caps, err := cfg.CapabilityDescriptor()
	if err != nil {
		return nil, err
	}
	evalLogger := videocfg.SlogEvaluatorLogger(logger)
	extra, err := cfg.ExtraRules(evalLogger)
	if err != nil {
		return nil, err
	}
	colorize := shouldColorize(cmd.ErrOrStderr())
	notifier := videocfg.NotifierFunc(func(message string, _ time.Duration) {
		fmt.Fprintln(cmd.ErrOrStderr(), renderStatusLine("override", statusInfo, message, colorize))
	})
	events := activity.HookFunc(func(_ context.Context, event activity.Event) error {
		logger.Debug("settings activity", "verb", event.Verb, "object", event.Object.String(), "channel", event.Channel)
		return nil
	})

	opts := []videocfg.ManagerOption{
		videocfg.WithStore(state.NewLayers(store)),
		videocfg.WithCapabilities(caps),
		videocfg.WithLogger(logger),
		videocfg.WithValidator(render.Validator(logger).With(extra...)),
		videocfg.WithEvaluatorLogger(evalLogger),
		videocfg.WithNotifier(notifier),
		videocfg.WithActivityHooks(activity.Hooks{events}),
		videocfg.WithActivityChannel(cfg.Channel),
	}
	if cfg.Actor != "" {
		opts = append(opts, videocfg.WithActor(cfg.Actor))
	}
	return render.NewManager(opts...)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

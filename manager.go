package videocfg

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/goliatone/go-videoconfig/layering"
	"github.com/goliatone/go-videoconfig/pkg/activity"
)

// Notification text shown around title overrides and unsaved tuning.
const (
	overrideSummaryMessage = "Warning: opening the graphics configuration will reset title settings and might cause issues!"
	unsavedTuningMessage   = "Warning: %s will discard unsaved tuning."
	optionWarningDuration  = 15 * time.Second
)

type titleState struct {
	id               string
	revision         string
	defaults         Layer
	revisionDefaults Layer
	local            Layer
	overrides        []string
}

// Manager owns the edit buffer, the pre-title global set, the tracker
// baseline and the publisher for one running application. Methods are
// serialised on an internal mutex; Active may be called from any goroutine.
type Manager struct {
	mu sync.Mutex

	schema    *Schema
	cfg       managerConfig
	logger    *slog.Logger
	validator *Validator
	tracker   *Tracker
	publisher *Publisher
	recorder  *activity.Recorder

	caps      CapabilityDescriptor
	capsKnown bool

	edit        *OptionSet
	global      *OptionSet
	globalLayer Layer
	title       *titleState
}

// New builds a manager holding compiled defaults. Call LoadGlobal to read
// the persisted global layer.
func New(schema *Schema, opts ...ManagerOption) (*Manager, error) {
	if schema == nil || schema.Len() == 0 {
		return nil, fmt.Errorf("%w: schema has no options", ErrInvalidOption)
	}
	cfg := applyManagerOptions(opts)

	m := &Manager{
		schema:    schema,
		cfg:       cfg,
		logger:    cfg.logger,
		validator: cfg.validator.withEvaluatorLogger(cfg.evalLogger),
		tracker:   NewTracker(schema.TrackedKeys()...),
		recorder:  activity.NewRecorder(cfg.activity.hooks, cfg.activity.channel, cfg.actorID),
	}
	if cfg.caps != nil {
		m.caps = cfg.caps.Clone()
		m.capsKnown = true
	}
	m.publisher = NewPublisher(
		WithPublishRuleSet(cfg.publishRules...),
		WithPublishRecorder(cfg.recorder),
		WithPublishEnvironment(m.publishEnv),
	)

	m.edit = NewOptionSet(schema)
	m.global = m.edit.Clone()
	m.globalLayer = NewLayer(layering.Global().Identifier(), nil)
	m.tracker.Capture(m.edit)
	return m, nil
}

// Schema returns the option registry the manager was built with.
func (m *Manager) Schema() *Schema {
	return m.schema
}

// LoadGlobal resets the edit buffer to compiled defaults overlaid with the
// persisted global layer, validates it and captures the baseline. Any
// loaded title is dropped.
func (m *Manager) LoadGlobal(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureCapabilities(ctx); err != nil {
		return err
	}

	layer := NewLayer(layering.Global().Identifier(), nil)
	if m.cfg.store != nil {
		loaded, err := m.loadLayer(ctx, layering.Global())
		if err != nil {
			return err
		}
		layer = loaded
	}

	set := NewOptionSet(m.schema)
	for _, key := range layer.Keys() {
		raw, _ := layer.Get(key)
		_ = set.Set(key, raw)
	}
	m.validator.Validate(set, m.caps)

	m.globalLayer = layer
	m.global = set
	m.edit = set.Clone()
	m.title = nil
	m.tracker.Capture(m.edit)

	for _, opt := range m.schema.Options() {
		if opt.Warning == "" {
			continue
		}
		if value, _ := set.Get(opt.Key); !equalValues(value, opt.Default) {
			m.cfg.notifier.Notify(opt.Warning, optionWarningDuration)
		}
	}
	m.logger.Info("global settings loaded", "keys", layer.Len())
	return nil
}

// ApplyTitle overlays the settings of titleID (and revision, when not empty)
// on the global set. Title-scoped keys are first reset to their compiled
// defaults. One note is shown per override plus a single warning when any
// override exists.
//
// The baseline is captured from the validated global set before the title
// layer is applied, unless WithBaselineAfterOverrides was given.
func (m *Manager) ApplyTitle(ctx context.Context, titleID, revision string) (MergeResult, error) {
	if titleID == "" {
		return MergeResult{}, ErrNoTitle
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.ensureCapabilities(ctx); err != nil {
		return MergeResult{}, err
	}

	state := &titleState{id: titleID, revision: revision}
	var err error
	if m.cfg.store != nil {
		if state.defaults, err = m.loadLayer(ctx, layering.TitleDefault(titleID)); err != nil {
			return MergeResult{}, err
		}
		if revision != "" {
			if state.revisionDefaults, err = m.loadLayer(ctx, layering.TitleRevision(titleID, revision)); err != nil {
				return MergeResult{}, err
			}
		}
		if state.local, err = m.loadLayer(ctx, layering.TitleLocal(titleID)); err != nil {
			return MergeResult{}, err
		}
	}

	base := m.global.Clone()
	for _, key := range m.schema.TitleScopedKeys() {
		_ = base.Reset(key)
	}
	m.validator.Validate(base, m.caps)

	layer := MergeLayer("title", state.local, state.revisionDefaults, state.defaults)
	result := ApplyLayerDetailed(base, layer, m.schema.DefaultLayer("compiled"))
	m.validator.Validate(result.Set, m.caps)
	state.overrides = result.Overrides()

	m.edit = result.Set.Clone()
	m.title = state
	if m.cfg.lateBaseline {
		m.tracker.Capture(m.edit)
	} else {
		m.tracker.Capture(base)
	}

	for _, notice := range result.Notices {
		m.cfg.notifier.Notify(notice.Message(), OverrideNoticeDuration)
		m.emit(ctx, activity.BuildOverrideAppliedEvent(activity.SettingsEventInput{
			Title:    titleID,
			Revision: revision,
			Key:      notice.Key,
			OldValue: notice.Previous,
			NewValue: notice.Value,
		}))
	}
	if len(result.Notices) > 0 {
		m.cfg.notifier.Notify(overrideSummaryMessage, OverrideSummaryDuration)
	}
	if len(result.Ignored) > 0 {
		m.logger.Debug("title layer keys ignored", "title", titleID, "keys", result.Ignored)
	}
	m.emit(ctx, activity.BuildLayerAppliedEvent(activity.SettingsEventInput{
		Title:    titleID,
		Revision: revision,
		Source:   layering.TitleLocal(titleID).Identifier(),
		Keys:     state.overrides,
	}))
	m.logger.Info("title settings applied",
		"title", titleID,
		"revision", revision,
		"overrides", len(result.Notices),
	)

	result.Set = result.Set.Clone()
	return result, nil
}

// UnloadTitle restores the pre-title global set and recaptures the
// baseline. It is a no-op when no title is loaded.
func (m *Manager) UnloadTitle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.title == nil {
		return
	}
	m.logger.Info("title settings unloaded", "title", m.title.id)
	m.title = nil
	m.edit = m.global.Clone()
	m.tracker.Capture(m.edit)
}

// Title reports the loaded title and revision.
func (m *Manager) Title() (titleID, revision string, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.title == nil {
		return "", "", false
	}
	return m.title.id, m.title.revision, true
}

// Overrides lists the keys the loaded title overrode.
func (m *Manager) Overrides() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.title == nil {
		return nil
	}
	return slices.Clone(m.title.overrides)
}

// Get reads key from the edit buffer.
func (m *Manager) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edit.Get(key)
}

// Set writes one value into the edit buffer.
func (m *Manager) Set(key string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edit.Set(key, value)
}

// Edit runs fn against a copy of the edit buffer and keeps the copy only
// when fn succeeds.
func (m *Manager) Edit(fn func(*OptionSet) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := m.edit.Clone()
	if err := fn(work); err != nil {
		return err
	}
	m.edit = work
	return nil
}

// Snapshot returns a copy of the edit buffer.
func (m *Manager) Snapshot() *OptionSet {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.edit.Clone()
}

// Baseline returns the tracker's current baseline.
func (m *Manager) Baseline() Baseline {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.Baseline()
}

// IsModified reports whether a tracked key differs from the baseline.
func (m *Manager) IsModified() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.IsModified(m.edit)
}

// Diff lists the tracked keys that differ from the baseline.
func (m *Manager) Diff() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tracker.Diff(m.edit)
}

// Revert restores the edit buffer to the baseline and returns a copy of it.
func (m *Manager) Revert() *OptionSet {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := m.tracker.Diff(m.edit)
	m.tracker.Revert(m.edit)
	if len(keys) > 0 {
		m.emit(context.Background(), activity.BuildRevertedEvent(activity.SettingsEventInput{
			Title: m.titleID(),
			Keys:  keys,
		}))
		m.logger.Debug("tracked settings reverted", "keys", keys)
	}
	return m.edit.Clone()
}

// WarnIfModified shows a warning naming action when tracked keys hold
// unsaved edits, and reports whether it did.
func (m *Manager) WarnIfModified(action string) bool {
	if !m.IsModified() {
		return false
	}
	if action == "" {
		action = "opening the configuration"
	}
	m.cfg.notifier.Notify(fmt.Sprintf(unsavedTuningMessage, action), OverrideSummaryDuration)
	return true
}

// SaveTitle persists the tracked keys of the edit buffer into the title's
// local layer. Keys equal to the title defaults are removed from the layer
// rather than written. The baseline is recaptured on success.
func (m *Manager) SaveTitle(ctx context.Context) (SavePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saveTitle(ctx, m.tracker.Keys(), true)
}

// SaveTitleKeys persists keys of the edit buffer into the title's local
// layer, tracked or not, with the same write/delete split as SaveTitle.
// Only the saved keys are folded into the baseline. Without keys it
// behaves like SaveTitle.
func (m *Manager) SaveTitleKeys(ctx context.Context, keys ...string) (SavePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(keys) == 0 {
		return m.saveTitle(ctx, m.tracker.Keys(), true)
	}
	canonical := make([]string, 0, len(keys))
	for _, key := range keys {
		name, ok := m.schema.Canonical(key)
		if !ok {
			return SavePlan{}, fmt.Errorf("%w: %s", ErrUnknownOption, key)
		}
		if !slices.Contains(canonical, name) {
			canonical = append(canonical, name)
		}
	}
	return m.saveTitle(ctx, canonical, false)
}

func (m *Manager) saveTitle(ctx context.Context, keys []string, recapture bool) (SavePlan, error) {
	if m.title == nil {
		return SavePlan{}, ErrNoTitle
	}
	if m.cfg.store == nil {
		return SavePlan{}, ErrNoStore
	}

	source := layering.TitleLocal(m.title.id)
	defaults := MergeLayer(source.Identifier(), m.title.revisionDefaults, m.title.defaults)
	plan := PlanSave(m.edit, defaults, keys...)
	if err := m.writePlan(ctx, source, plan); err != nil {
		return SavePlan{}, err
	}

	local := m.title.local.Clone()
	for _, key := range plan.Deletes {
		m.deleteWithAliases(&local, key)
	}
	for _, key := range plan.Writes.Keys() {
		value, _ := plan.Writes.Get(key)
		local.Set(key, value)
	}
	m.title.local = local
	if recapture {
		m.tracker.Capture(m.edit)
	} else {
		m.tracker.Accept(m.edit, keys...)
	}

	m.emit(ctx, activity.BuildLayerSavedEvent(activity.SettingsEventInput{
		Title:    m.title.id,
		Revision: m.title.revision,
		Source:   source.Identifier(),
		Keys:     plan.Writes.Keys(),
		Metadata: map[string]any{"deleted": slices.Clone(plan.Deletes)},
	}))
	m.logger.Info("title settings saved",
		"title", m.title.id,
		"written", plan.Writes.Len(),
		"deleted", len(plan.Deletes),
	)
	return plan, nil
}

// ResetTitle sets every tracked key of the edit buffer to the loaded title's
// default (revision defaults first, then title defaults, then compiled).
// Without a title the compiled defaults are used.
func (m *Manager) ResetTitle(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	keys := m.tracker.Keys()
	var view *OptionSet
	if m.title != nil {
		view = DefaultView(m.schema, keys, m.title.revisionDefaults, m.title.defaults)
	} else {
		view = DefaultView(m.schema, keys)
	}
	if len(keys) == 0 {
		keys = m.schema.Keys()
	}
	for _, key := range keys {
		if value, ok := view.Get(key); ok {
			_ = m.edit.Set(key, value)
		}
	}
	m.validator.Validate(m.edit, m.caps)

	m.emit(ctx, activity.BuildResetEvent(activity.SettingsEventInput{
		Title: m.titleID(),
		Keys:  keys,
	}))
	return nil
}

// SaveGlobal persists the edit buffer to the global layer. While a title is
// loaded, title-scoped keys and keys the title overrode keep their global
// value. Keys equal to the compiled default are removed from the layer.
func (m *Manager) SaveGlobal(ctx context.Context) (SavePlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.store == nil {
		return SavePlan{}, ErrNoStore
	}

	next := m.global.Clone()
	for _, key := range m.schema.Keys() {
		if m.title != nil {
			if opt, _ := m.schema.Lookup(key); opt.TitleScoped || slices.Contains(m.title.overrides, key) {
				continue
			}
		}
		value, _ := m.edit.Get(key)
		next.values[key] = value
	}

	source := layering.Global()
	plan := PlanSave(next, NewLayer(source.Identifier(), nil))
	if err := m.writePlan(ctx, source, plan); err != nil {
		return SavePlan{}, err
	}

	m.global = next
	m.globalLayer = plan.Writes.Clone()
	if m.title == nil {
		m.tracker.Capture(m.edit)
	}

	m.emit(ctx, activity.BuildLayerSavedEvent(activity.SettingsEventInput{
		Source:   source.Identifier(),
		Keys:     plan.Writes.Keys(),
		Metadata: map[string]any{"deleted": slices.Clone(plan.Deletes)},
	}))
	m.logger.Info("global settings saved", "written", plan.Writes.Len(), "deleted", len(plan.Deletes))
	return plan, nil
}

// Capabilities returns the descriptor the validator currently uses.
func (m *Manager) Capabilities() CapabilityDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.caps.Clone()
}

// Requery fetches the capabilities again and revalidates the edit buffer,
// the global set and the baseline, so a later Revert restores values that
// are valid for the new capabilities.
func (m *Manager) Requery(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.cfg.provider == nil {
		return ErrNoCapabilityProvider
	}
	caps, err := m.cfg.provider.Capabilities(ctx)
	if err != nil {
		return fmt.Errorf("videocfg: query capabilities: %w", err)
	}
	m.caps = caps.Clone()
	m.capsKnown = true
	m.validator.Validate(m.global, m.caps)
	m.validator.Validate(m.edit, m.caps)
	if baseline := m.tracker.Baseline(); !baseline.IsZero() {
		set := baseline.Set()
		m.validator.Validate(set, m.caps)
		m.tracker.Capture(set)
	}
	m.logger.Info("capabilities requeried",
		"adapters", len(caps.Adapters),
		"display", caps.Display.String(),
	)
	return nil
}

// Publish snapshots the edit buffer into a new active configuration.
func (m *Manager) Publish() *ActiveConfig {
	m.mu.Lock()
	active := m.publisher.Publish(m.edit)
	title := m.titleID()
	m.mu.Unlock()

	m.emit(context.Background(), activity.BuildPublishedEvent(activity.SettingsEventInput{
		ObjectID: active.ID(),
		Title:    title,
		Metadata: map[string]any{
			"generation": active.Generation(),
			"frozen":     active.Frozen(),
		},
	}))
	return active
}

// Active returns the last published configuration, or nil.
func (m *Manager) Active() *ActiveConfig {
	return m.publisher.Active()
}

// Trace reports which persisted layers hold key. Effective is the value the
// edit buffer currently holds.
func (m *Manager) Trace(key string) (Trace, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	canonical, ok := m.schema.Canonical(key)
	if !ok {
		return Trace{}, fmt.Errorf("%w: %s", ErrUnknownOption, key)
	}
	opt, _ := m.schema.Lookup(canonical)

	layers := []ScopedLayer{
		{Scope: CompiledScope(), Layer: NewLayer("compiled", map[string]any{canonical: opt.Default})},
		Scoped(layering.Global(), m.globalLayer),
	}
	if m.title != nil {
		layers = append(layers,
			Scoped(layering.TitleDefault(m.title.id), m.title.defaults),
			Scoped(layering.TitleLocal(m.title.id), m.title.local),
		)
		if m.title.revision != "" {
			layers = append(layers, Scoped(layering.TitleRevision(m.title.id, m.title.revision), m.title.revisionDefaults))
		}
	}
	for i := range layers {
		layers[i].Layer, _ = layers[i].Layer.Normalize(m.schema)
	}
	stack, err := NewStack(layers...)
	if err != nil {
		return Trace{}, err
	}
	trace := stack.Trace(canonical)
	trace.Effective, trace.Resolved = m.edit.Get(canonical)
	return trace, nil
}

// publishEnv runs inside Publisher.Publish, with m.mu held.
func (m *Manager) publishEnv() PublishEnv {
	return PublishEnv{
		Capabilities:                 m.caps.Clone(),
		AlternateFrameBufferDisabled: m.cfg.altFBDisabled(),
	}
}

func (m *Manager) ensureCapabilities(ctx context.Context) error {
	if m.capsKnown || m.cfg.provider == nil {
		return nil
	}
	caps, err := m.cfg.provider.Capabilities(ctx)
	if err != nil {
		return fmt.Errorf("videocfg: query capabilities: %w", err)
	}
	m.caps = caps.Clone()
	m.capsKnown = true
	return nil
}

func (m *Manager) loadLayer(ctx context.Context, source layering.Source) (Layer, error) {
	id := source.Identifier()
	layer, err := m.cfg.store.LoadLayer(ctx, id)
	if err != nil {
		return Layer{}, fmt.Errorf("%w: %s: %w", ErrLayerLoad, id, err)
	}
	layer.Name = id
	normalized, dropped := layer.Normalize(m.schema)
	if len(dropped) > 0 {
		m.logger.Debug("persisted keys dropped", "source", id, "keys", dropped)
	}
	return normalized, nil
}

// writePlan deletes stale keys and the legacy aliases of every planned key
// before writing, so no key is stored twice.
func (m *Manager) writePlan(ctx context.Context, source layering.Source, plan SavePlan) error {
	id := source.Identifier()
	store := m.cfg.store
	var stale []string
	for _, key := range plan.Deletes {
		opt, _ := m.schema.Lookup(key)
		stale = append(stale, opt.Key)
		stale = append(stale, opt.Aliases...)
	}
	for _, key := range plan.Writes.Keys() {
		opt, _ := m.schema.Lookup(key)
		stale = append(stale, opt.Aliases...)
	}
	var errs []error
	for _, candidate := range stale {
		exists, err := store.LayerExists(ctx, id, candidate)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !exists {
			continue
		}
		if err := store.DeleteKey(ctx, id, candidate); err != nil {
			errs = append(errs, err)
		}
	}
	if plan.Writes.Len() > 0 {
		if err := store.SaveLayer(ctx, id, plan.Writes); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLayerSave, id, err)
	}
	return nil
}

func (m *Manager) deleteWithAliases(layer *Layer, key string) {
	opt, ok := m.schema.Lookup(key)
	if !ok {
		layer.Delete(key)
		return
	}
	layer.Delete(opt.Key)
	for _, alias := range opt.Aliases {
		layer.Delete(alias)
	}
}

func (m *Manager) titleID() string {
	if m.title == nil {
		return ""
	}
	return m.title.id
}

package videocfg

import (
	"sync"
	"testing"
)

type frozenRecorder struct {
	authoritative bool
	frozen        *OptionSet
}

func (r frozenRecorder) Authoritative() bool       { return r.authoritative }
func (r frozenRecorder) FrozenConfig() *OptionSet { return r.frozen }

func xfbRules() []PublishRule {
	return []PublishRule{
		ForceValue("hmd-disables-xfb", keyUseXFB, false, func(env PublishEnv) bool {
			return env.Capabilities.Display.HeadMounted()
		}),
		ForceValue("alt-fb-disables-xfb", keyUseXFB, false, func(env PublishEnv) bool {
			return env.AlternateFrameBufferDisabled
		}),
	}
}

func TestPublishIsolatesSnapshotFromEdits(t *testing.T) {
	edit := setOf(t, testSchema(t), map[string]any{keyMSAA: 1})
	publisher := NewPublisher()

	if publisher.Active() != nil {
		t.Fatalf("no snapshot should exist before the first publish")
	}
	active := publisher.Publish(edit)

	_ = edit.Set(keyMSAA, 2)
	if active.Int(keyMSAA) != 1 {
		t.Fatalf("published snapshot followed an edit: %d", active.Int(keyMSAA))
	}
	snapshot := active.Snapshot()
	_ = snapshot.Set(keyMSAA, 3)
	if active.Int(keyMSAA) != 1 {
		t.Fatalf("snapshot copy aliased the active config")
	}

	next := publisher.Publish(edit)
	if next.Generation() != active.Generation()+1 || next.ID() == active.ID() {
		t.Fatalf("expected a new generation and id: %d/%s vs %d/%s",
			next.Generation(), next.ID(), active.Generation(), active.ID())
	}
	if publisher.Active() != next || next.Int(keyMSAA) != 2 {
		t.Fatalf("active config was not swapped")
	}
	if active.Int(keyMSAA) != 1 {
		t.Fatalf("older snapshot changed after a later publish")
	}
}

func TestPublishRulesApplyToCopyOnly(t *testing.T) {
	edit := setOf(t, testSchema(t), map[string]any{keyUseXFB: true})
	env := PublishEnv{Capabilities: CapabilityDescriptor{Display: DisplayRift}}
	publisher := NewPublisher(
		WithPublishRuleSet(xfbRules()...),
		WithPublishEnvironment(func() PublishEnv { return env }),
	)

	active := publisher.Publish(edit)
	if active.Bool(keyUseXFB) {
		t.Fatalf("head-mounted display should force XFB off in the snapshot")
	}
	if !edit.Bool(keyUseXFB) {
		t.Fatalf("publish rules must not touch the edit buffer")
	}

	env = PublishEnv{}
	if active := publisher.Publish(edit); !active.Bool(keyUseXFB) {
		t.Fatalf("XFB should survive without an HMD")
	}

	env = PublishEnv{AlternateFrameBufferDisabled: true}
	if active := publisher.Publish(edit); active.Bool(keyUseXFB) {
		t.Fatalf("disabled alternate frame buffer should force XFB off")
	}
}

func TestPublishUsesFrozenConfigWhileReplaying(t *testing.T) {
	schema := testSchema(t)
	edit := setOf(t, schema, map[string]any{keyMSAA: 2})
	frozen := setOf(t, schema, map[string]any{keyMSAA: 1})

	var sawReplay bool
	recorder := &frozenRecorder{authoritative: true, frozen: frozen}
	publisher := NewPublisher(
		WithPublishRecorder(recorder),
		WithPublishRuleSet(PublishRule{
			Name:  "observe",
			When:  func(env PublishEnv) bool { sawReplay = env.Replaying; return false },
			Apply: func(*OptionSet) {},
		}),
	)

	active := publisher.Publish(edit)
	if active.Int(keyMSAA) != 1 || !active.Frozen() || !sawReplay {
		t.Fatalf("expected frozen config to be published, got msaa=%d frozen=%v replay=%v",
			active.Int(keyMSAA), active.Frozen(), sawReplay)
	}
	if edit.Int(keyMSAA) != 2 {
		t.Fatalf("replay must not change the edit buffer")
	}

	recorder.authoritative = false
	if active := publisher.Publish(edit); active.Int(keyMSAA) != 2 || active.Frozen() {
		t.Fatalf("expected live edit buffer once replay ends")
	}
}

func TestActiveConfigConcurrentReaders(t *testing.T) {
	edit := NewOptionSet(testSchema(t))
	publisher := NewPublisher()
	publisher.Publish(edit)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				active := publisher.Active()
				// Values within one snapshot always move together.
				if active.Int(keyMSAA) != active.Int(keyAdapter) {
					t.Errorf("torn snapshot: msaa=%d adapter=%d", active.Int(keyMSAA), active.Int(keyAdapter))
					return
				}
			}
		}()
	}

	for i := 1; i <= 200; i++ {
		_ = edit.Set(keyMSAA, i)
		_ = edit.Set(keyAdapter, i)
		publisher.Publish(edit)
	}
	close(stop)
	wg.Wait()

	if publisher.Active().Generation() != 201 {
		t.Fatalf("expected 201 publications, got %d", publisher.Active().Generation())
	}
}

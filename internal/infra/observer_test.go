package infra

import (
	"testing"
	"time"

	hook "github.com/robotn/gohook"
	"github.com/stretchr/testify/assert"
)

// recordingSink captures sink calls.
type recordingSink struct {
	inputs       []time.Time
	manualPauses []time.Time
}

func (s *recordingSink) OnInput(at time.Time)       { s.inputs = append(s.inputs, at) }
func (s *recordingSink) OnManualPause(at time.Time) { s.manualPauses = append(s.manualPauses, at) }

func TestHookTranslator_MouseAndKeysAreInput(t *testing.T) {
	var tr hookTranslator
	sink := &recordingSink{}
	when := time.Date(2026, time.March, 10, 10, 0, 0, 0, time.UTC)

	for _, kind := range []uint8{hook.MouseMove, hook.MouseDown, hook.MouseWheel, hook.KeyDown, hook.KeyUp} {
		tr.handle(hook.Event{Kind: kind, Rawcode: 0x41, When: when}, sink)
	}

	assert.Len(t, sink.inputs, 5)
	assert.Empty(t, sink.manualPauses)
	assert.Equal(t, when, sink.inputs[0])
}

func TestHookTranslator_IgnoresNonInputEvents(t *testing.T) {
	var tr hookTranslator
	sink := &recordingSink{}

	tr.handle(hook.Event{Kind: hook.HookEnabled}, sink)
	tr.handle(hook.Event{Kind: hook.HookDisabled}, sink)

	assert.Empty(t, sink.inputs)
}

func TestHookTranslator_CtrlF5IsManualPause(t *testing.T) {
	for _, codes := range [][2]uint16{{0x11, 0x74}, {0xA2, 0x74}, {0xffe3, 0xffc2}} {
		var tr hookTranslator
		sink := &recordingSink{}

		tr.handle(hook.Event{Kind: hook.KeyDown, Rawcode: codes[0]}, sink)
		tr.handle(hook.Event{Kind: hook.KeyDown, Rawcode: codes[1]}, sink)

		assert.Len(t, sink.manualPauses, 1, "codes %v", codes)
		assert.Len(t, sink.inputs, 1, "the ctrl press itself is input")
	}
}

func TestHookTranslator_F5WithoutCtrlIsInput(t *testing.T) {
	var tr hookTranslator
	sink := &recordingSink{}

	tr.handle(hook.Event{Kind: hook.KeyDown, Rawcode: 0x11}, sink)
	tr.handle(hook.Event{Kind: hook.KeyUp, Rawcode: 0x11}, sink)
	tr.handle(hook.Event{Kind: hook.KeyDown, Rawcode: 0x74}, sink)

	assert.Empty(t, sink.manualPauses)
	assert.Len(t, sink.inputs, 3)
}

func TestHookTranslator_ZeroTimestampUsesNow(t *testing.T) {
	var tr hookTranslator
	sink := &recordingSink{}
	before := time.Now()

	tr.handle(hook.Event{Kind: hook.MouseMove}, sink)

	if assert.Len(t, sink.inputs, 1) {
		assert.False(t, sink.inputs[0].Before(before))
	}
}

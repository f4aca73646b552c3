package infra

import (
	"fmt"
	"sync"
	"time"

	hook "github.com/robotn/gohook"
	"go.uber.org/zap"

	"github.com/misua/watah/internal/domain"
)

// Raw key codes for the manual-pause hotkey (Ctrl+F5).
// Windows virtual-key codes first, then X11 keysyms.
var (
	ctrlRawcodes = map[uint16]bool{0x11: true, 0xA2: true, 0xA3: true, 0xffe3: true, 0xffe4: true}
	f5Rawcodes   = map[uint16]bool{0x74: true, 0xffc2: true}
)

// HookObserver implements domain.InputObserver with a gohook global hook.
type HookObserver struct {
	logger *zap.Logger

	mu      sync.Mutex
	events  chan hook.Event
	done    chan struct{}
	stopped bool
}

// NewHookObserver creates an observer. Nothing is installed until Start.
func NewHookObserver(logger *zap.Logger) *HookObserver {
	return &HookObserver{logger: logger}
}

// Start installs the hook and forwards events to sink on a separate goroutine.
func (o *HookObserver) Start(sink domain.InputSink) (err error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.events != nil {
		return fmt.Errorf("input observer already started")
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to install input hook: %v", r)
		}
	}()

	events := hook.Start()
	if events == nil {
		return fmt.Errorf("failed to install input hook: no event channel")
	}
	o.events = events
	o.done = make(chan struct{})

	go o.forward(events, sink, o.done)
	o.logger.Info("input observer started (Ctrl+F5 for a manual pause)")
	return nil
}

// Stop releases the hook. Safe to call more than once.
func (o *HookObserver) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.events == nil || o.stopped {
		return
	}
	o.stopped = true
	hook.End()
	select {
	case <-o.done:
		o.logger.Info("input observer stopped")
	case <-time.After(2 * time.Second):
		o.logger.Warn("input observer did not drain after stop")
	}
}

func (o *HookObserver) forward(events chan hook.Event, sink domain.InputSink, done chan struct{}) {
	defer close(done)
	var t hookTranslator
	for ev := range events {
		t.handle(ev, sink)
	}
}

// hookTranslator turns raw hook events into sink calls and tracks Ctrl state.
type hookTranslator struct {
	ctrlHeld bool
}

func (t *hookTranslator) handle(ev hook.Event, sink domain.InputSink) {
	at := ev.When
	if at.IsZero() {
		at = time.Now()
	}

	switch ev.Kind {
	case hook.KeyDown, hook.KeyHold:
		if ctrlRawcodes[ev.Rawcode] {
			t.ctrlHeld = true
		} else if f5Rawcodes[ev.Rawcode] && t.ctrlHeld {
			sink.OnManualPause(at)
			return
		}
		sink.OnInput(at)
	case hook.KeyUp:
		if ctrlRawcodes[ev.Rawcode] {
			t.ctrlHeld = false
		}
		sink.OnInput(at)
	case hook.MouseMove, hook.MouseDrag, hook.MouseDown, hook.MouseUp, hook.MouseHold, hook.MouseWheel:
		sink.OnInput(at)
	}
}

// Ensure HookObserver implements domain.InputObserver.
var _ domain.InputObserver = (*HookObserver)(nil)

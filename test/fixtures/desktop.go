// Package fixtures provides in-memory stand-ins for the desktop used by
// integration tests.
package fixtures

import (
	"strings"
	"sync"
	"time"

	"github.com/misua/watah/internal/domain"
)

// RecordingInjector implements domain.InputInjector in memory.
type RecordingInjector struct {
	mu      sync.Mutex
	x, y    int
	width   int
	height  int
	moves   int
	scrolls int
	keys    []string
	typed   strings.Builder
}

// NewRecordingInjector creates an injector for a 1920x1080 screen.
func NewRecordingInjector() *RecordingInjector {
	return &RecordingInjector{x: 960, y: 540, width: 1920, height: 1080}
}

func (r *RecordingInjector) MoveTo(x, y int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.x, r.y = x, y
	r.moves++
	return nil
}

func (r *RecordingInjector) CursorPosition() (int, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.x, r.y, nil
}

func (r *RecordingInjector) Click(button domain.MouseButton) error { return nil }

func (r *RecordingInjector) Scroll(amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scrolls++
	return nil
}

func (r *RecordingInjector) PressKey(key string, modifiers ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.keys = append(r.keys, strings.Join(append(modifiers, key), "+"))
	return nil
}

func (r *RecordingInjector) TypeChar(ch rune, delay time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.typed.WriteRune(ch)
	return nil
}

func (r *RecordingInjector) ScreenSize() (int, int) { return r.width, r.height }

// Moves returns the number of cursor moves.
func (r *RecordingInjector) Moves() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.moves
}

// Scrolls returns the number of wheel events.
func (r *RecordingInjector) Scrolls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.scrolls
}

// Typed returns everything typed so far.
func (r *RecordingInjector) Typed() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.typed.String()
}

var _ domain.InputInjector = (*RecordingInjector)(nil)

// StaticWindow implements domain.WindowDetector with a fixed title.
type StaticWindow struct {
	Title string
	Ext   string
}

func (w StaticWindow) ActiveWindowTitle() string { return w.Title }
func (w StaticWindow) DetectFileType() string    { return w.Ext }

// VirtualClock moves forward by Step on every reading, so a scheduler
// ticking in real milliseconds covers minutes of simulated time.
type VirtualClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewVirtualClock starts at start.
func NewVirtualClock(start time.Time, step time.Duration) *VirtualClock {
	return &VirtualClock{now: start, Step: step}
}

// Now returns the current virtual time and advances it.
func (c *VirtualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(c.Step)
	return c.now
}

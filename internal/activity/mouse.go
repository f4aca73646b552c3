package activity

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"
)

const (
	screenMargin  = 100
	curveSteps    = 50
	scrollNotches = 1
)

// Point is a screen coordinate.
type Point struct{ X, Y int }

// Mouse implements cursor and wheel activities.
type Mouse struct {
	deps Deps
}

// NewMouse creates mouse activities over deps.
func NewMouse(deps Deps) *Mouse {
	deps.withDefaults()
	return &Mouse{deps: deps}
}

// RandomMovement glides the cursor to a random point inside the screen margin.
func (m *Mouse) RandomMovement(ctx context.Context) error {
	w, h := m.deps.Injector.ScreenSize()
	if w <= 2*screenMargin || h <= 2*screenMargin {
		return fmt.Errorf("screen too small for movement: %dx%d", w, h)
	}
	target := Point{
		X: screenMargin + m.deps.Rand.IntN(w-2*screenMargin),
		Y: screenMargin + m.deps.Rand.IntN(h-2*screenMargin),
	}
	return m.MoveSmooth(target)
}

// Jitter nudges the cursor by up to 20px, staying on screen.
func (m *Mouse) Jitter(ctx context.Context) error {
	x, y, err := m.deps.Injector.CursorPosition()
	if err != nil {
		return fmt.Errorf("cursor position: %w", err)
	}
	w, h := m.deps.Injector.ScreenSize()
	target := Point{
		X: clamp(x+m.deps.Rand.IntN(41)-20, 0, w),
		Y: clamp(y+m.deps.Rand.IntN(41)-20, 0, h),
	}
	return m.MoveSmooth(target)
}

// MoveSmooth moves from the current position to target along a cubic Bezier curve.
func (m *Mouse) MoveSmooth(target Point) error {
	x, y, err := m.deps.Injector.CursorPosition()
	if err != nil {
		return fmt.Errorf("cursor position: %w", err)
	}
	start := Point{X: x, Y: y}
	distance := math.Hypot(float64(target.X-start.X), float64(target.Y-start.Y))
	step := m.deps.MoveDuration(distance) / curveSteps

	for _, p := range m.BezierPath(start, target) {
		if err := m.deps.Injector.MoveTo(p.X, p.Y); err != nil {
			return fmt.Errorf("move to (%d,%d): %w", p.X, p.Y, err)
		}
		m.deps.Sleep(step)
	}

	m.deps.Logger.Debug("moved mouse",
		zap.Int("from_x", start.X), zap.Int("from_y", start.Y),
		zap.Int("to_x", target.X), zap.Int("to_y", target.Y))
	return nil
}

// BezierPath returns curveSteps points from start to end (inclusive) along a
// cubic curve whose control points are offset by up to 50px.
func (m *Mouse) BezierPath(start, end Point) []Point {
	offset := func() float64 { return float64(m.deps.Rand.IntN(101) - 50) }

	sx, sy := float64(start.X), float64(start.Y)
	ex, ey := float64(end.X), float64(end.Y)
	c1x := sx + (ex-sx)/3 + offset()
	c1y := sy + (ey-sy)/3 + offset()
	c2x := sx + 2*(ex-sx)/3 + offset()
	c2y := sy + 2*(ey-sy)/3 + offset()

	points := make([]Point, 0, curveSteps)
	for i := 0; i < curveSteps; i++ {
		t := float64(i) / float64(curveSteps-1)
		u := 1 - t
		px := u*u*u*sx + 3*u*u*t*c1x + 3*u*t*t*c2x + t*t*t*ex
		py := u*u*u*sy + 3*u*u*t*c1y + 3*u*t*t*c2y + t*t*t*ey
		points = append(points, Point{X: int(math.Round(px)), Y: int(math.Round(py))})
	}
	return points
}

// RandomScroll scrolls 2-5 times, downward 70% of the time.
func (m *Mouse) RandomScroll(ctx context.Context) error {
	direction := 1
	if m.deps.Rand.Float64() < 0.3 {
		direction = -1
	}
	return m.Scroll(direction)
}

// Scroll emits 2-5 wheel events in direction (+1 down, -1 up).
func (m *Mouse) Scroll(direction int) error {
	count := 2 + m.deps.Rand.IntN(4)
	for i := 0; i < count; i++ {
		if err := m.deps.Injector.Scroll(direction * scrollNotches); err != nil {
			return fmt.Errorf("scroll: %w", err)
		}
		m.deps.pause(100*time.Millisecond, 300*time.Millisecond)
	}
	m.deps.Logger.Debug("scrolled", zap.Int("direction", direction), zap.Int("count", count))
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

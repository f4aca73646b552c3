package infra

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/misua/watah/internal/domain"
)

// RobotInjector implements domain.InputInjector on top of robotgo.
// robotgo calls into native code; panics there are turned into errors.
type RobotInjector struct{}

// NewRobotInjector creates a robotgo-backed injector.
func NewRobotInjector() *RobotInjector {
	return &RobotInjector{}
}

// MoveTo places the cursor at absolute coordinates.
func (r *RobotInjector) MoveTo(x, y int) (err error) {
	defer recoverInto(&err, "move")
	robotgo.Move(x, y)
	return nil
}

// CursorPosition returns the current cursor coordinates.
func (r *RobotInjector) CursorPosition() (x, y int, err error) {
	defer recoverInto(&err, "location")
	x, y = robotgo.Location()
	return x, y, nil
}

// Click presses and releases a mouse button.
func (r *RobotInjector) Click(button domain.MouseButton) (err error) {
	defer recoverInto(&err, "click")
	robotgo.Click(string(button))
	return nil
}

// Scroll turns the wheel by amount notches; positive scrolls down.
func (r *RobotInjector) Scroll(amount int) (err error) {
	defer recoverInto(&err, "scroll")
	switch {
	case amount > 0:
		robotgo.ScrollDir(amount, "down")
	case amount < 0:
		robotgo.ScrollDir(-amount, "up")
	}
	return nil
}

// PressKey taps key with optional held modifiers.
func (r *RobotInjector) PressKey(key string, modifiers ...string) (err error) {
	defer recoverInto(&err, "key "+key)
	args := make([]interface{}, 0, len(modifiers))
	for _, m := range modifiers {
		args = append(args, m)
	}
	if tapErr := robotgo.KeyTap(key, args...); tapErr != nil {
		return fmt.Errorf("key tap %q: %w", key, tapErr)
	}
	return nil
}

// TypeChar types one character then waits delay.
func (r *RobotInjector) TypeChar(ch rune, delay time.Duration) (err error) {
	defer recoverInto(&err, "type")
	switch ch {
	case '\n':
		if tapErr := robotgo.KeyTap("enter"); tapErr != nil {
			return fmt.Errorf("key tap enter: %w", tapErr)
		}
	case '\t':
		if tapErr := robotgo.KeyTap("tab"); tapErr != nil {
			return fmt.Errorf("key tap tab: %w", tapErr)
		}
	default:
		robotgo.TypeStr(string(ch))
	}
	if delay > 0 {
		time.Sleep(delay)
	}
	return nil
}

// ScreenSize returns the primary display size.
func (r *RobotInjector) ScreenSize() (width, height int) {
	defer func() {
		if recover() != nil {
			width, height = 0, 0
		}
	}()
	return robotgo.GetScreenSize()
}

// Ensure RobotInjector implements domain.InputInjector.
var _ domain.InputInjector = (*RobotInjector)(nil)

// RobotWindowDetector implements domain.WindowDetector using robotgo.GetTitle.
type RobotWindowDetector struct {
	title func() string
}

// NewRobotWindowDetector creates a detector for the foreground window.
func NewRobotWindowDetector() *RobotWindowDetector {
	return &RobotWindowDetector{title: safeTitle}
}

// NewWindowDetectorWithTitle creates a detector with a fixed title source (for testing).
func NewWindowDetectorWithTitle(title func() string) *RobotWindowDetector {
	return &RobotWindowDetector{title: title}
}

// ActiveWindowTitle returns the focused window title.
func (d *RobotWindowDetector) ActiveWindowTitle() string {
	return d.title()
}

// fileNamePattern picks "main.go" out of titles like "main.go - project - Visual Studio Code".
var fileNamePattern = regexp.MustCompile(`[\w.-]+\.[A-Za-z0-9]{1,5}\b`)

// DetectFileType returns the extension of the file named in the window title.
func (d *RobotWindowDetector) DetectFileType() string {
	title := d.title()
	if title == "" {
		return ""
	}
	for _, candidate := range fileNamePattern.FindAllString(title, -1) {
		ext := strings.ToLower(filepath.Ext(candidate))
		if _, known := knownExtensions[ext]; known {
			return ext
		}
	}
	return ""
}

var knownExtensions = map[string]struct{}{
	".py": {}, ".go": {}, ".tf": {}, ".js": {}, ".ts": {}, ".java": {},
	".rs": {}, ".md": {}, ".yaml": {}, ".yml": {}, ".json": {}, ".txt": {},
}

// Ensure RobotWindowDetector implements domain.WindowDetector.
var _ domain.WindowDetector = (*RobotWindowDetector)(nil)

func safeTitle() (title string) {
	defer func() {
		if recover() != nil {
			title = ""
		}
	}()
	return robotgo.GetTitle()
}

func recoverInto(err *error, op string) {
	if r := recover(); r != nil {
		*err = fmt.Errorf("%s: native input call panicked: %v", op, r)
	}
}

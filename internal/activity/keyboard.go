package activity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/misua/watah/internal/domain"
)

var navigationKeys = []string{"up", "down", "left", "right", "pageup", "pagedown", "home", "end"}

// Keyboard implements key presses and text entry.
type Keyboard struct {
	deps     Deps
	snippets *SnippetBank
}

// NewKeyboard creates keyboard activities over deps.
func NewKeyboard(deps Deps) *Keyboard {
	deps.withDefaults()
	return &Keyboard{deps: deps, snippets: NewSnippetBank(deps.Rand)}
}

// PressNavigationKey taps one random navigation key.
func (k *Keyboard) PressNavigationKey(ctx context.Context) error {
	key := navigationKeys[k.deps.Rand.IntN(len(navigationKeys))]
	if err := k.deps.Injector.PressKey(key); err != nil {
		return fmt.Errorf("press %s: %w", key, err)
	}
	k.deps.Logger.Debug("pressed key", zap.String("key", key))
	return nil
}

// IsEditorWindow reports whether title matches a configured editor marker.
func (k *Keyboard) IsEditorWindow(title string) bool {
	if title == "" {
		return false
	}
	lower := strings.ToLower(title)
	for _, marker := range k.deps.EditorMarkers {
		if marker != "" && strings.Contains(lower, strings.ToLower(marker)) {
			return true
		}
	}
	return false
}

// TypeSnippet types a short text snippet into the focused editor.
// It refuses to type outside editor windows.
func (k *Keyboard) TypeSnippet(ctx context.Context) error {
	title := ""
	if k.deps.Window != nil {
		title = k.deps.Window.ActiveWindowTitle()
	}
	if !k.IsEditorWindow(title) {
		return fmt.Errorf("%w: %q", domain.ErrWindowNotEditable, title)
	}

	ext := ""
	if k.deps.Window != nil {
		ext = k.deps.Window.DetectFileType()
	}

	var snippet string
	switch r := k.deps.Rand.Float64(); {
	case r < 0.6:
		// End of file is least likely to disturb existing text.
		if err := k.deps.Injector.PressKey("end", "ctrl"); err != nil {
			return fmt.Errorf("jump to end: %w", err)
		}
		if err := k.newLines(2); err != nil {
			return err
		}
		snippet = k.snippets.Snippet(ext)
	case r < 0.9:
		if err := k.deps.Injector.PressKey("end"); err != nil {
			return fmt.Errorf("jump to line end: %w", err)
		}
		if err := k.newLines(1); err != nil {
			return err
		}
		snippet = k.snippets.Snippet(ext)
	default:
		if err := k.deps.Injector.PressKey("end"); err != nil {
			return fmt.Errorf("jump to line end: %w", err)
		}
		if err := k.newLines(1); err != nil {
			return err
		}
		snippet = k.snippets.Comment(ext)
	}

	if err := k.TypeText(snippet); err != nil {
		return err
	}
	k.deps.Logger.Info("typed snippet", zap.String("ext", ext), zap.Int("chars", len(snippet)))
	return nil
}

// TypeText types text line by line, pausing between lines.
// Non-ASCII characters are dropped.
func (k *Keyboard) TypeText(text string) error {
	lines := strings.Split(asciiOnly(text), "\n")
	for i, line := range lines {
		for _, ch := range line {
			if err := k.deps.Injector.TypeChar(ch, k.deps.TypingDelay()); err != nil {
				return fmt.Errorf("type %q: %w", ch, err)
			}
			if k.deps.Rand.Float64() < 0.08 {
				k.deps.pause(200*time.Millisecond, 600*time.Millisecond)
			}
		}
		if i < len(lines)-1 {
			if err := k.newLines(1); err != nil {
				return err
			}
			k.deps.pause(300*time.Millisecond, 700*time.Millisecond)
		}
	}
	return k.newLines(1)
}

func (k *Keyboard) newLines(n int) error {
	for i := 0; i < n; i++ {
		if err := k.deps.Injector.PressKey("enter"); err != nil {
			return fmt.Errorf("press enter: %w", err)
		}
		k.deps.pause(50*time.Millisecond, 100*time.Millisecond)
	}
	return nil
}

func asciiOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r < 128 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

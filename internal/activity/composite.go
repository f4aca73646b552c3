package activity

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/misua/watah/internal/domain"
)

// Workflow names used by RandomWorkflow.
const (
	WorkflowFileEditing = "file_editing"
	WorkflowBrowsing    = "browsing"
	WorkflowSearch      = "search"
	WorkflowReadCode    = "read_code"
)

// workflowWeights sums to 1.
var workflowWeights = []struct {
	name   string
	weight float64
}{
	{WorkflowFileEditing, 0.3},
	{WorkflowBrowsing, 0.3},
	{WorkflowSearch, 0.2},
	{WorkflowReadCode, 0.2},
}

var searchTerms = []string{"config", "handler", "TODO", "error", "test"}

// Composite chains mouse and keyboard activities into workflows.
type Composite struct {
	deps     Deps
	mouse    *Mouse
	keyboard *Keyboard
}

// NewComposite creates composite workflows.
func NewComposite(deps Deps, mouse *Mouse, keyboard *Keyboard) *Composite {
	deps.withDefaults()
	return &Composite{deps: deps, mouse: mouse, keyboard: keyboard}
}

// RandomWorkflow runs one workflow picked by workflowWeights.
func (c *Composite) RandomWorkflow(ctx context.Context) error {
	name := c.pickWorkflow()
	c.deps.Logger.Info("running workflow", zap.String("workflow", name))
	return c.Workflow(ctx, name)
}

// Workflow runs the named workflow.
func (c *Composite) Workflow(ctx context.Context, name string) error {
	switch name {
	case WorkflowFileEditing:
		return c.FileEditing(ctx)
	case WorkflowBrowsing:
		return c.Browsing(ctx)
	case WorkflowSearch:
		return c.Search(ctx)
	case WorkflowReadCode:
		return c.ReadCode(ctx)
	default:
		return fmt.Errorf("%w: workflow %s", domain.ErrUnknownActivity, name)
	}
}

func (c *Composite) pickWorkflow() string {
	r := c.deps.Rand.Float64()
	var cum float64
	for _, w := range workflowWeights {
		cum += w.weight
		if r < cum {
			return w.name
		}
	}
	return workflowWeights[len(workflowWeights)-1].name
}

// FileEditing moves, clicks into the editor, types, scrolls and types again.
func (c *Composite) FileEditing(ctx context.Context) error {
	if err := c.mouse.RandomMovement(ctx); err != nil {
		return err
	}
	c.deps.pause(500*time.Millisecond, 1500*time.Millisecond)

	if err := c.deps.Injector.Click(domain.ButtonLeft); err != nil {
		return fmt.Errorf("click: %w", err)
	}
	c.deps.pause(time.Second, 2*time.Second)

	if err := c.keyboard.TypeSnippet(ctx); err != nil {
		return err
	}
	c.deps.pause(1500*time.Millisecond, 3*time.Second)

	if err := c.mouse.Scroll(1); err != nil {
		return err
	}
	c.deps.pause(800*time.Millisecond, 1500*time.Millisecond)

	return c.keyboard.TypeSnippet(ctx)
}

// Browsing moves the pointer, scrolls a few pages and sometimes clicks.
func (c *Composite) Browsing(ctx context.Context) error {
	if err := c.mouse.RandomMovement(ctx); err != nil {
		return err
	}
	c.deps.pause(500*time.Millisecond, time.Second)

	pages := 2 + c.deps.Rand.IntN(3)
	for i := 0; i < pages; i++ {
		if err := c.mouse.Scroll(1); err != nil {
			return err
		}
		c.deps.pause(1500*time.Millisecond, 3*time.Second)
	}

	if c.deps.Rand.Float64() < 0.3 {
		if err := c.deps.Injector.Click(domain.ButtonLeft); err != nil {
			return fmt.Errorf("click: %w", err)
		}
		c.deps.pause(time.Second, 2*time.Second)
	}
	return nil
}

// Search opens the find bar, types a term, steps through a match and closes it.
func (c *Composite) Search(ctx context.Context) error {
	if err := c.deps.Injector.PressKey("f", "ctrl"); err != nil {
		return fmt.Errorf("open find: %w", err)
	}
	c.deps.pause(300*time.Millisecond, 700*time.Millisecond)

	term := searchTerms[c.deps.Rand.IntN(len(searchTerms))]
	for _, ch := range term {
		if err := c.deps.Injector.TypeChar(ch, c.deps.TypingDelay()); err != nil {
			return fmt.Errorf("type search term: %w", err)
		}
	}
	c.deps.pause(500*time.Millisecond, time.Second)

	if err := c.deps.Injector.PressKey("enter"); err != nil {
		return fmt.Errorf("next match: %w", err)
	}
	c.deps.pause(time.Second, 2*time.Second)

	if err := c.deps.Injector.PressKey("escape"); err != nil {
		return fmt.Errorf("close find: %w", err)
	}
	return nil
}

// ReadCode scrolls and nudges the cursor like someone reading.
func (c *Composite) ReadCode(ctx context.Context) error {
	steps := 2 + c.deps.Rand.IntN(3)
	for i := 0; i < steps; i++ {
		if c.deps.Rand.Float64() < 0.5 {
			if err := c.mouse.Scroll(1); err != nil {
				return err
			}
		} else if err := c.keyboard.PressNavigationKey(ctx); err != nil {
			return err
		}
		c.deps.pause(time.Second, 3*time.Second)
	}
	return c.mouse.Jitter(ctx)
}

// ReadThenType reads for a moment 40% of the time, then types a snippet.
func (c *Composite) ReadThenType(ctx context.Context) error {
	if c.deps.Rand.Float64() < 0.4 {
		if err := c.ReadCode(ctx); err != nil {
			return err
		}
		c.deps.pause(500*time.Millisecond, 1500*time.Millisecond)
	}
	return c.keyboard.TypeSnippet(ctx)
}

// TabSwitching presses Ctrl+Tab once or twice, then scrolls the new tab.
func (c *Composite) TabSwitching(ctx context.Context) error {
	switches := 1
	if c.deps.Rand.Float64() < 0.4 {
		switches = 2
	}
	for i := 0; i < switches; i++ {
		if err := c.deps.Injector.PressKey("tab", "ctrl"); err != nil {
			return fmt.Errorf("ctrl+tab: %w", err)
		}
		c.deps.pause(500*time.Millisecond, time.Second)
	}

	direction := 1
	if c.deps.Rand.Float64() < 0.5 {
		direction = -1
	}
	if err := c.mouse.Scroll(direction); err != nil {
		return err
	}
	c.deps.Logger.Debug("switched tabs", zap.Int("count", switches))
	return nil
}

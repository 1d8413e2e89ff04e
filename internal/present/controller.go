package present

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ppiankov/unearth/internal/model"
)

// ErrDestroyed is returned by every call after Destroy
var ErrDestroyed = errors.New("presentation surface destroyed")

// ScreenKind selects what the surface shows
type ScreenKind int

const (
	ScreenNone ScreenKind = iota
	ScreenLoading
	ScreenResults
	ScreenError
)

// Screen is the content of the surface at one moment
type Screen struct {
	Kind    ScreenKind
	Message string
	Results *model.AnalysisResults

	// Translation of the main summary, set after a translate action
	Language    string
	Translation string
}

// Renderer draws a screen
type Renderer interface {
	Render(w io.Writer, s Screen) error
}

// State is the surface lifecycle
type State int

const (
	StateAbsent State = iota
	StateHidden
	StateVisible
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateHidden:
		return "hidden"
	case StateVisible:
		return "visible"
	case StateDestroyed:
		return "destroyed"
	default:
		return "absent"
	}
}

// Controller owns one presentation surface. There is no global instance;
// callers create one and pass it to whoever reports progress.
type Controller struct {
	mu       sync.Mutex
	out      io.Writer
	renderer Renderer
	state    State
	screen   Screen
}

// NewController creates a controller drawing to out
func NewController(out io.Writer, renderer Renderer) *Controller {
	return &Controller{out: out, renderer: renderer}
}

// Create allocates the surface. It is idempotent.
func (c *Controller) Create() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.create()
}

func (c *Controller) create() error {
	switch c.state {
	case StateDestroyed:
		return ErrDestroyed
	case StateAbsent:
		c.state = StateHidden
	}
	return nil
}

// Show makes the surface visible and draws the current screen
func (c *Controller) Show() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.show()
}

func (c *Controller) show() error {
	if err := c.create(); err != nil {
		return err
	}
	c.state = StateVisible
	if c.screen.Kind == ScreenNone {
		return nil
	}
	return c.renderer.Render(c.out, c.screen)
}

// Hide keeps the surface and its screen but stops drawing
func (c *Controller) Hide() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDestroyed {
		return ErrDestroyed
	}
	if c.state == StateVisible {
		c.state = StateHidden
	}
	return nil
}

// Destroy releases the surface. Later calls fail with ErrDestroyed.
func (c *Controller) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateDestroyed
	c.screen = Screen{}
}

// State returns the lifecycle state
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns the screen last set
func (c *Controller) Current() Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.screen
}

// Loading shows a progress message
func (c *Controller) Loading(msg string) error {
	return c.set(Screen{Kind: ScreenLoading, Message: msg})
}

// Results shows a finished report
func (c *Controller) Results(res *model.AnalysisResults) error {
	if res == nil {
		return fmt.Errorf("no results to show")
	}
	return c.set(Screen{Kind: ScreenResults, Results: res})
}

// Failure shows an error message
func (c *Controller) Failure(msg string) error {
	return c.set(Screen{Kind: ScreenError, Message: msg})
}

// Votes updates the tally on the results screen
func (c *Controller) Votes(tally model.VoteTally) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen.Kind != ScreenResults {
		return fmt.Errorf("no results on screen")
	}
	res := *c.screen.Results
	res.Votes = tally
	c.screen.Results = &res
	return c.redraw()
}

// Translation adds a translated summary to the results screen
func (c *Controller) Translation(language, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen.Kind != ScreenResults {
		return fmt.Errorf("no results on screen")
	}
	c.screen.Language, c.screen.Translation = language, text
	return c.redraw()
}

func (c *Controller) set(s Screen) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateDestroyed {
		return ErrDestroyed
	}
	c.screen = s
	return c.show()
}

func (c *Controller) redraw() error {
	if c.state == StateDestroyed {
		return ErrDestroyed
	}
	if c.state != StateVisible {
		return nil
	}
	return c.renderer.Render(c.out, c.screen)
}

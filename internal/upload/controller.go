// Package upload drives a single geometry file from selection to a terminal
// analysis event.
package upload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/joeblew999/geo-analyzer/internal/analysis"
)

var (
	ErrBusy            = errors.New("upload: submission already in flight")
	ErrUnsupportedFile = errors.New("upload: unsupported file type")
)

// SupportedExtensions are the geometry formats the analysis service reads.
var SupportedExtensions = []string{".shp", ".geojson", ".json"}

// File is a user-selected geometry file.
type File struct {
	Name    string
	Content []byte
}

// Submitter sends a file to the analysis service. A non-2xx answer should
// be returned as *analysis.ServiceError so its body can be classified.
type Submitter interface {
	Submit(ctx context.Context, f File) ([]byte, error)
}

// Completion is the payload of an AnalysisComplete event.
type Completion struct {
	Status  string // "success" or "partial_success"
	Outcome analysis.Outcome
}

// Handlers are the consumer callbacks. Any of them may be nil.
type Handlers struct {
	FileSelected     func(File)
	AnalysisComplete func(Completion)
	AnalysisError    func(analysis.Failure)
}

// Controller holds the selected file and the in-flight flag.
type Controller struct {
	submitter Submitter
	handlers  Handlers
	timeout   time.Duration

	mu       sync.Mutex
	selected *File
	loading  bool
}

// NewController creates a controller. A zero timeout disables the
// per-submission deadline.
func NewController(s Submitter, h Handlers, timeout time.Duration) *Controller {
	return &Controller{submitter: s, handlers: h, timeout: timeout}
}

// SelectFile records f as the file to submit and notifies the consumer. It
// does not submit.
func (c *Controller) SelectFile(f File) error {
	if !supported(f.Name) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFile, f.Name)
	}

	c.mu.Lock()
	c.selected = &f
	c.mu.Unlock()

	if c.handlers.FileSelected != nil {
		c.handlers.FileSelected(f)
	}
	return nil
}

// Selected returns the currently selected file.
func (c *Controller) Selected() (File, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.selected == nil {
		return File{}, false
	}
	return *c.selected, true
}

// Loading reports whether a submission is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Submit sends the selected file and emits exactly one terminal event. It
// is a no-op without a selected file and returns ErrBusy while another
// submission is in flight. Analysis failures are delivered through
// AnalysisError, not returned.
func (c *Controller) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.selected == nil {
		c.mu.Unlock()
		return nil
	}
	if c.loading {
		c.mu.Unlock()
		return ErrBusy
	}
	c.loading = true
	file := *c.selected
	c.mu.Unlock()

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	body, err := c.submitter.Submit(ctx, file)

	c.mu.Lock()
	c.loading = false
	c.mu.Unlock()

	switch o := analysis.Classify(body, err).(type) {
	case analysis.Success:
		c.complete(Completion{Status: analysis.KindSuccess.String(), Outcome: o})
	case analysis.PartialSuccess:
		c.complete(Completion{Status: analysis.KindPartialSuccess.String(), Outcome: o})
	case analysis.Failure:
		if c.handlers.AnalysisError != nil {
			c.handlers.AnalysisError(o)
		}
	}
	return nil
}

func (c *Controller) complete(done Completion) {
	if c.handlers.AnalysisComplete != nil {
		c.handlers.AnalysisComplete(done)
	}
}

func supported(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, s := range SupportedExtensions {
		if ext == s {
			return true
		}
	}
	return false
}

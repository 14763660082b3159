// Package session is the composition root of one analyzer workspace: it
// wires the upload controller to the classifier, report and map renderer.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/geo-analyzer/internal/analysis"
	"github.com/joeblew999/geo-analyzer/internal/history"
	"github.com/joeblew999/geo-analyzer/internal/mapview"
	"github.com/joeblew999/geo-analyzer/internal/monitoring"
	"github.com/joeblew999/geo-analyzer/internal/report"
	"github.com/joeblew999/geo-analyzer/internal/service"
	"github.com/joeblew999/geo-analyzer/internal/upload"
)

// ErrNothingRendered is returned by Reanalyze when no data layer exists.
var ErrNothingRendered = errors.New("session: no feature collection to reanalyze")

// Recorder stores settled submissions.
type Recorder interface {
	Record(ctx context.Context, e history.Entry) error
}

// Reanalyzer resubmits a feature collection without re-upload.
type Reanalyzer interface {
	Reanalyze(ctx context.Context, featureCollection []byte) ([]byte, error)
}

// Config lists the collaborators of a session. Renderer and Submitter are
// required; the rest may be nil.
type Config struct {
	Submitter  upload.Submitter
	Reanalyzer Reanalyzer
	Renderer   *mapview.Renderer
	Bus        *service.EventBus
	History    Recorder
	Timeout    time.Duration
}

// State is what the UI shows. The partial-success fields describe the
// report currently shown and are zero after a full success.
type State struct {
	ID               string                     `json:"id,omitempty" doc:"ID of the last settled analysis"`
	Filename         string                     `json:"filename,omitempty" doc:"File of the last settled analysis, or the selected file"`
	Status           string                     `json:"status,omitempty" doc:"Outcome of the last analysis"`
	Loading          bool                       `json:"loading" doc:"Whether a submission is in flight"`
	ErrorMessage     string                     `json:"errorMessage,omitempty" doc:"Message for the last failure"`
	ValidFeatures    int                        `json:"validFeatures" doc:"Valid features reported by a partial success"`
	InvalidFeatures  int                        `json:"invalidFeatures" doc:"Invalid features reported by a partial success"`
	ValidationErrors []analysis.ValidationError `json:"validationErrors" doc:"Per-feature errors reported by a partial success"`
	Report           report.AnalysisReport      `json:"report" doc:"Current analysis report"`
	Map              mapview.MapState           `json:"map" doc:"Current map state"`
}

// Session owns one controller and one renderer.
type Session struct {
	cfg        Config
	controller *upload.Controller

	mu       sync.RWMutex
	id       string
	filename string
	status   string
	errMsg   string
	report   report.AnalysisReport
	partial  analysis.PartialSuccess

	// busy covers Submit, Analyze, Reanalyze and SelectFile; inFlight names
	// the file being analyzed while busy.
	busy     bool
	inFlight string
}

// New wires a session and initializes its map.
func New(cfg Config) (*Session, error) {
	if cfg.Renderer == nil {
		return nil, errors.New("session: renderer is required")
	}
	if cfg.Submitter == nil {
		return nil, errors.New("session: submitter is required")
	}
	if cfg.Bus == nil {
		cfg.Bus = service.NewEventBus()
	}
	if err := cfg.Renderer.Initialize(); err != nil && !errors.Is(err, mapview.ErrAlreadyInitialized) {
		return nil, fmt.Errorf("failed to initialize map: %w", err)
	}

	s := &Session{cfg: cfg, report: report.Empty()}
	s.controller = upload.NewController(cfg.Submitter, upload.Handlers{
		FileSelected: s.onFileSelected,
		AnalysisComplete: func(c upload.Completion) {
			s.settle(c.Outcome)
		},
		AnalysisError: func(f analysis.Failure) {
			s.settle(f)
		},
	}, cfg.Timeout)
	return s, nil
}

// Bus returns the event bus state changes are published on.
func (s *Session) Bus() *service.EventBus { return s.cfg.Bus }

// SelectFile records the file to analyze. It returns upload.ErrBusy while
// a submission is in flight.
func (s *Session) SelectFile(f upload.File) error {
	_, err := s.exclusive(func() error {
		return s.controller.SelectFile(f)
	})
	return err
}

// Submit analyzes the selected file. It returns upload.ErrBusy while another
// submission is in flight; analysis failures show up in State instead.
func (s *Session) Submit(ctx context.Context) (State, error) {
	return s.exclusive(func() error {
		s.submit(ctx)
		return nil
	})
}

// Analyze selects f and submits it. A busy session rejects f without
// touching the current selection.
func (s *Session) Analyze(ctx context.Context, f upload.File) (State, error) {
	return s.exclusive(func() error {
		if err := s.controller.SelectFile(f); err != nil {
			return err
		}
		s.submit(ctx)
		return nil
	})
}

// Reanalyze sends the rendered feature collection back to the service.
func (s *Session) Reanalyze(ctx context.Context) (State, error) {
	if s.cfg.Reanalyzer == nil {
		return s.State(), errors.New("session: reanalysis not configured")
	}
	return s.exclusive(func() error {
		fc, ok := s.cfg.Renderer.Collection()
		if !ok {
			return ErrNothingRendered
		}

		s.mu.Lock()
		s.inFlight = s.filename
		s.mu.Unlock()

		if s.cfg.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
			defer cancel()
		}
		body, err := s.cfg.Reanalyzer.Reanalyze(ctx, fc)
		s.settle(analysis.Classify(body, err))
		return nil
	})
}

// exclusive runs fn as the only submission in flight and returns the state
// after it finished. One submission or reanalysis runs at a time, so settle
// is never entered concurrently.
func (s *Session) exclusive(fn func() error) (State, error) {
	s.mu.Lock()
	if s.busy {
		s.mu.Unlock()
		return s.State(), upload.ErrBusy
	}
	s.busy = true
	s.mu.Unlock()

	err := func() error {
		defer func() {
			s.mu.Lock()
			s.busy = false
			s.inFlight = ""
			s.mu.Unlock()
		}()
		return fn()
	}()
	return s.State(), err
}

// submit runs the controller on the selected file. The caller holds busy.
func (s *Session) submit(ctx context.Context) {
	f, ok := s.controller.Selected()
	if !ok {
		return
	}
	s.mu.Lock()
	s.inFlight = f.Name
	s.mu.Unlock()

	// The controller's own guard cannot trip while the session is busy.
	if err := s.controller.Submit(ctx); err != nil {
		monitoring.Logf("session: %v", err)
	}
}

// ToggleLegend flips the legend overlay.
func (s *Session) ToggleLegend() mapview.MapState {
	s.cfg.Renderer.ToggleLegend()
	s.cfg.Bus.Publish(service.Event{Resource: service.ResourceMap, Action: service.ActionUpdated})
	return s.cfg.Renderer.Snapshot()
}

// SetBaseLayer switches the base layer.
func (s *Session) SetBaseLayer(name string) (mapview.MapState, error) {
	if err := s.cfg.Renderer.SetBaseLayer(name); err != nil {
		return s.cfg.Renderer.Snapshot(), err
	}
	s.cfg.Bus.Publish(service.Event{Resource: service.ResourceMap, Action: service.ActionUpdated})
	return s.cfg.Renderer.Snapshot(), nil
}

// Report returns the current report.
func (s *Session) Report() report.AnalysisReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

// Map returns the current map state.
func (s *Session) Map() mapview.MapState {
	return s.cfg.Renderer.Snapshot()
}

// State returns everything the UI shows.
func (s *Session) State() State {
	s.mu.RLock()
	st := State{
		ID:               s.id,
		Filename:         s.filename,
		Status:           s.status,
		Loading:          s.busy,
		ErrorMessage:     s.errMsg,
		ValidFeatures:    s.partial.ValidFeatures,
		InvalidFeatures:  s.partial.InvalidFeatures,
		ValidationErrors: append([]analysis.ValidationError{}, s.partial.RawErrors...),
		Report:           s.report,
	}
	s.mu.RUnlock()

	st.Map = s.cfg.Renderer.Snapshot()
	return st
}

func (s *Session) onFileSelected(f upload.File) {
	s.mu.Lock()
	s.filename = f.Name
	s.mu.Unlock()
	s.cfg.Bus.Publish(service.Event{Resource: service.ResourceAnalysis, Action: service.ActionSelected})
}

// settle applies one classified outcome. Usable outcomes replace the report
// and feed the map; failures only set the message.
func (s *Session) settle(o analysis.Outcome) {
	id := uuid.NewString()
	msg := analysis.Message(o)

	var rep report.AnalysisReport
	if o.Usable() {
		rep = report.Synthesize(o)
		if fc := geoJSON(o); len(fc) > 0 {
			if err := s.cfg.Renderer.Render(fc); err != nil {
				monitoring.Logf("session: analysis %s: %v", id, err)
				msg = err.Error()
			}
		}
	}

	s.mu.Lock()
	s.id = id
	s.status = o.Kind().String()
	s.errMsg = msg
	if o.Usable() {
		s.report = rep
		s.partial, _ = o.(analysis.PartialSuccess)
	}
	filename := s.inFlight
	s.filename = filename
	current := s.report
	s.mu.Unlock()

	s.record(history.Entry{
		ID:         id,
		Filename:   filename,
		Status:     o.Kind().String(),
		Anomalies:  current.Anomalies,
		MeanScore:  current.MeanScore,
		ModelType:  current.ModelType,
		ErrorCount: len(current.Errors),
		Message:    msg,
	})

	action := service.ActionCompleted
	if !o.Usable() {
		action = service.ActionFailed
	}
	s.cfg.Bus.Publish(service.Event{Resource: service.ResourceAnalysis, Action: action, ID: id})
}

func (s *Session) record(e history.Entry) {
	if s.cfg.History == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.cfg.History.Record(ctx, e); err != nil {
		monitoring.Logf("session: %v", err)
	}
}

func geoJSON(o analysis.Outcome) []byte {
	switch v := o.(type) {
	case analysis.Success:
		if v.Response.HasGeoJSON() {
			return v.Response.GeoJSON
		}
	case analysis.PartialSuccess:
		return v.GeoJSON
	}
	return nil
}

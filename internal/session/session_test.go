package session

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/geo-analyzer/internal/analysis"
	"github.com/joeblew999/geo-analyzer/internal/history"
	"github.com/joeblew999/geo-analyzer/internal/mapview"
	"github.com/joeblew999/geo-analyzer/internal/report"
	"github.com/joeblew999/geo-analyzer/internal/service"
	"github.com/joeblew999/geo-analyzer/internal/upload"
)

const successBody = `{
	"geoJson": {"type": "FeatureCollection", "features": [
		{"type": "Feature", "properties": {"name": "A"},
		 "geometry": {"type": "Point", "coordinates": [10, 50]}}
	]},
	"anomalies": [1, 2],
	"statistics": {"mean_anomaly_score": 0.4567},
	"model_type": "IsolationForest"
}`

type fakeService struct {
	body []byte
	err  error
	got  []byte
}

func (f *fakeService) Submit(_ context.Context, file upload.File) ([]byte, error) {
	f.got = file.Content
	return f.body, f.err
}

func (f *fakeService) Reanalyze(_ context.Context, fc []byte) ([]byte, error) {
	f.got = fc
	return f.body, f.err
}

type fakeRecorder struct {
	mu      sync.Mutex
	entries []history.Entry
}

func (r *fakeRecorder) Record(_ context.Context, e history.Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, e)
	return nil
}

// gatedService blocks each call on release once started is set.
type gatedService struct {
	body    []byte
	started chan struct{}
	release chan struct{}
}

func (g *gatedService) wait() []byte {
	if g.started != nil {
		g.started <- struct{}{}
		<-g.release
	}
	return g.body
}

func (g *gatedService) Submit(context.Context, upload.File) ([]byte, error) {
	return g.wait(), nil
}

func (g *gatedService) Reanalyze(context.Context, []byte) ([]byte, error) {
	return g.wait(), nil
}

func (g *gatedService) gate() {
	g.started = make(chan struct{})
	g.release = make(chan struct{})
}

func newGatedSession(t *testing.T, g *gatedService, rec *fakeRecorder) *Session {
	t.Helper()
	cfg := Config{
		Submitter:  g,
		Reanalyzer: g,
		Renderer:   mapview.NewRenderer(mapview.DefaultOptions),
	}
	if rec != nil {
		cfg.History = rec
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func newSession(t *testing.T, svc *fakeService, rec *fakeRecorder) *Session {
	t.Helper()
	cfg := Config{
		Submitter:  svc,
		Reanalyzer: svc,
		Renderer:   mapview.NewRenderer(mapview.DefaultOptions),
	}
	if rec != nil {
		cfg.History = rec
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func TestNew_RequiresRenderer(t *testing.T) {
	_, err := New(Config{Submitter: &fakeService{}})
	assert.Error(t, err)
}

func TestNew_InitializesMap(t *testing.T) {
	s := newSession(t, &fakeService{}, nil)
	st := s.State()
	assert.True(t, st.Map.Initialized)
	assert.Equal(t, report.Empty(), st.Report)
	assert.False(t, st.Loading)
}

func TestAnalyze_Success(t *testing.T) {
	svc := &fakeService{body: []byte(successBody)}
	rec := &fakeRecorder{}
	s := newSession(t, svc, rec)

	events := s.Bus().Subscribe()
	defer s.Bus().Unsubscribe(events)

	st, err := s.Analyze(context.Background(), upload.File{Name: "parcels.geojson", Content: []byte("{}")})
	require.NoError(t, err)

	assert.Equal(t, "success", st.Status)
	assert.Empty(t, st.ErrorMessage)
	assert.Equal(t, "parcels.geojson", st.Filename)
	assert.Equal(t, report.AnalysisReport{Anomalies: 2, MeanScore: "0.46", ModelType: "IsolationForest", Errors: []string{}}, st.Report)
	require.NotNil(t, st.Map.DataLayer)
	assert.Equal(t, 1, st.Map.DataLayer.FeatureCount)

	require.Len(t, rec.entries, 1)
	assert.Equal(t, st.ID, rec.entries[0].ID)
	assert.Equal(t, "success", rec.entries[0].Status)
	assert.Equal(t, 2, rec.entries[0].Anomalies)

	var actions []string
	for len(events) > 0 {
		actions = append(actions, (<-events).Action)
	}
	assert.Equal(t, []string{service.ActionSelected, service.ActionCompleted}, actions)
}

func TestAnalyze_UnsupportedFile(t *testing.T) {
	s := newSession(t, &fakeService{}, nil)
	_, err := s.Analyze(context.Background(), upload.File{Name: "notes.txt"})
	assert.ErrorIs(t, err, upload.ErrUnsupportedFile)
}

func TestAnalyze_FailureKeepsReport(t *testing.T) {
	svc := &fakeService{body: []byte(successBody)}
	s := newSession(t, svc, nil)
	first, err := s.Analyze(context.Background(), upload.File{Name: "a.geojson"})
	require.NoError(t, err)

	svc.body, svc.err = nil, errors.New("connection refused")
	st, err := s.Analyze(context.Background(), upload.File{Name: "b.geojson"})
	require.NoError(t, err)

	assert.Equal(t, "failure", st.Status)
	assert.Equal(t, "connection refused", st.ErrorMessage)
	assert.Equal(t, first.Report, st.Report)
	assert.Equal(t, first.Map.DataLayer, st.Map.DataLayer)
}

func TestAnalyze_PartialSuccess(t *testing.T) {
	body := `{"detail": {
		"type": "GeometryValidationError",
		"message": "Some geometries are invalid",
		"valid_features": 1,
		"invalid_features": 1,
		"errors": [{"feature_id": "7", "error": "self_intersection", "message": "Ring self-intersects", "error_type": "topology"}]
	}}`
	svc := &fakeService{err: &analysis.ServiceError{StatusCode: 422, Body: []byte(body)}}
	s := newSession(t, svc, nil)

	st, err := s.Analyze(context.Background(), upload.File{Name: "a.shp"})
	require.NoError(t, err)

	assert.Equal(t, "partial_success", st.Status)
	assert.Equal(t, "Found 1 invalid geometries", st.ErrorMessage)
	assert.Equal(t, []string{"Feature 7: Ring self-intersects (topology)"}, st.Report.Errors)
	assert.Nil(t, st.Map.DataLayer)
	assert.Equal(t, 1, st.ValidFeatures)
	assert.Equal(t, 1, st.InvalidFeatures)
	assert.Equal(t, []analysis.ValidationError{{
		FeatureID: "7", Error: "self_intersection", Message: "Ring self-intersects", ErrorType: "topology",
	}}, st.ValidationErrors)

	svc.body, svc.err = []byte(successBody), nil
	st, err = s.Analyze(context.Background(), upload.File{Name: "b.geojson"})
	require.NoError(t, err)
	assert.Equal(t, "success", st.Status)
	assert.Zero(t, st.ValidFeatures)
	assert.Zero(t, st.InvalidFeatures)
	assert.Empty(t, st.ValidationErrors)
}

func TestAnalyze_RenderErrorKeepsMap(t *testing.T) {
	svc := &fakeService{body: []byte(successBody)}
	s := newSession(t, svc, nil)
	first, err := s.Analyze(context.Background(), upload.File{Name: "a.geojson"})
	require.NoError(t, err)

	svc.body = []byte(`{"geoJson": {"type": "FeatureCollection", "features": [
		{"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [500, 50]}}
	]}, "anomalies": [], "model_type": "LOF"}`)
	st, err := s.Analyze(context.Background(), upload.File{Name: "b.geojson"})
	require.NoError(t, err)

	assert.Equal(t, "success", st.Status)
	assert.NotEmpty(t, st.ErrorMessage)
	assert.Equal(t, "LOF", st.Report.ModelType)
	assert.Equal(t, first.Map.DataLayer, st.Map.DataLayer)
}

func TestReanalyze(t *testing.T) {
	svc := &fakeService{body: []byte(successBody)}
	rec := &fakeRecorder{}
	s := newSession(t, svc, rec)

	_, err := s.Reanalyze(context.Background())
	assert.ErrorIs(t, err, ErrNothingRendered)

	_, err = s.Analyze(context.Background(), upload.File{Name: "a.geojson"})
	require.NoError(t, err)

	st, err := s.Reanalyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "success", st.Status)
	assert.Contains(t, string(svc.got), "FeatureCollection")
	assert.Len(t, rec.entries, 2)
}

func TestMapControls(t *testing.T) {
	s := newSession(t, &fakeService{}, nil)

	st := s.ToggleLegend()
	assert.True(t, st.LegendVisible)

	st, err := s.SetBaseLayer("Satellite")
	require.NoError(t, err)
	assert.Equal(t, "Satellite", st.BaseLayer)

	_, err = s.SetBaseLayer("Nope")
	assert.ErrorIs(t, err, mapview.ErrUnknownBaseLayer)
}

func TestAnalyze_BusyKeepsInFlightFile(t *testing.T) {
	g := &gatedService{body: []byte(successBody)}
	g.gate()
	rec := &fakeRecorder{}
	s := newGatedSession(t, g, rec)

	done := make(chan State)
	go func() {
		st, _ := s.Analyze(context.Background(), upload.File{Name: "first.geojson"})
		done <- st
	}()
	<-g.started
	assert.True(t, s.State().Loading)

	_, err := s.Analyze(context.Background(), upload.File{Name: "second.geojson"})
	assert.ErrorIs(t, err, upload.ErrBusy)
	assert.ErrorIs(t, s.SelectFile(upload.File{Name: "third.geojson"}), upload.ErrBusy)

	close(g.release)
	st := <-done

	assert.Equal(t, "first.geojson", st.Filename)
	assert.False(t, st.Loading)
	require.Len(t, rec.entries, 1)
	assert.Equal(t, "first.geojson", rec.entries[0].Filename)
}

func TestReanalyze_BusyWhileSubmitting(t *testing.T) {
	g := &gatedService{body: []byte(successBody)}
	s := newGatedSession(t, g, nil)
	_, err := s.Analyze(context.Background(), upload.File{Name: "a.geojson"})
	require.NoError(t, err)

	g.gate()
	done := make(chan struct{})
	go func() {
		s.Submit(context.Background())
		close(done)
	}()
	<-g.started

	_, err = s.Reanalyze(context.Background())
	assert.ErrorIs(t, err, upload.ErrBusy)

	close(g.release)
	<-done
}

func TestSubmit_BusyWhileReanalyzing(t *testing.T) {
	g := &gatedService{body: []byte(successBody)}
	s := newGatedSession(t, g, nil)
	_, err := s.Analyze(context.Background(), upload.File{Name: "a.geojson"})
	require.NoError(t, err)

	g.gate()
	done := make(chan struct{})
	go func() {
		s.Reanalyze(context.Background())
		close(done)
	}()
	<-g.started

	_, err = s.Submit(context.Background())
	assert.ErrorIs(t, err, upload.ErrBusy)
	_, err = s.Analyze(context.Background(), upload.File{Name: "b.geojson"})
	assert.ErrorIs(t, err, upload.ErrBusy)

	close(g.release)
	<-done
	assert.Equal(t, "a.geojson", s.State().Filename)
}

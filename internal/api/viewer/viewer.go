// Package viewer streams the analyzer UI to the browser as Datastar SSE.
package viewer

import (
	"context"
	"strconv"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geo-analyzer/internal/api"
	"github.com/joeblew999/geo-analyzer/internal/humastar"
	"github.com/joeblew999/geo-analyzer/internal/session"
	"github.com/joeblew999/geo-analyzer/internal/templates"
)

// Selectors patched by the viewer.
const (
	ReportSelector  = "#report"
	OverlaySelector = "#map-overlay"
)

// Handler serves the viewer SSE endpoints.
type Handler struct {
	humastar.Handler
	session *session.Session
}

// NewHandler creates a viewer handler.
func NewHandler(s *session.Session, renderer *templates.Renderer) *Handler {
	return &Handler{
		Handler: humastar.Handler{Renderer: renderer},
		session: s,
	}
}

func (h *Handler) RegisterRoutes(a huma.API) {
	huma.Get(a, "/api/v1/viewer/events", h.Events, huma.OperationTags("viewer"))
	huma.Post(a, "/api/v1/viewer/legend", h.ToggleLegend, huma.OperationTags("viewer"))
	huma.Post(a, "/api/v1/viewer/base", h.SetBaseLayer, huma.OperationTags("viewer"))
	huma.Post(a, "/api/v1/viewer/reanalyze", h.Reanalyze, huma.OperationTags("viewer"))
}

// Events pushes the full view once and again after every session change.
func (h *Handler) Events(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		bus := h.session.Bus()
		ch := bus.Subscribe()
		defer bus.Unsubscribe(ch)

		h.push(sse, h.session.State())
		for {
			select {
			case <-ctx.Done():
				return
			case ev := <-ch:
				h.push(sse, h.session.State())
				sse.DispatchCustomEvent("analysis-changed", map[string]any{
					"resource": ev.Resource,
					"action":   ev.Action,
					"id":       ev.ID,
				})
			}
		}
	}), nil
}

func (h *Handler) ToggleLegend(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		h.session.ToggleLegend()
		h.push(sse, h.session.State())
	}), nil
}

func (h *Handler) SetBaseLayer(ctx context.Context, input *humastar.SignalsInput) (*huma.StreamResponse, error) {
	signals, err := input.MustParse()
	if err != nil {
		return nil, err
	}
	name := signals.String("baseLayer")
	return h.Stream(func(sse humastar.SSE) {
		if _, err := h.session.SetBaseLayer(name); err != nil {
			sse.Error(err.Error())
			return
		}
		h.push(sse, h.session.State())
	}), nil
}

func (h *Handler) Reanalyze(ctx context.Context, input *humastar.EmptyInput) (*huma.StreamResponse, error) {
	return h.Stream(func(sse humastar.SSE) {
		st, err := h.session.Reanalyze(ctx)
		if err != nil {
			sse.Error(api.StatusError(err).Error())
			return
		}
		h.push(sse, st)
	}), nil
}

func (h *Handler) push(sse humastar.SSE, st session.State) {
	sse.Patch(h.Renderer.MustRender("report-panel", st.Report), ReportSelector)
	sse.Patch(h.Renderer.MustRender("map-overlay", st.Map), OverlaySelector)
	sse.Signals(Signals(h.Renderer, st))
}

// Signals flattens a session state into the Datastar signal set the page
// binds to. Popups are pre-rendered HTML in feature order.
func Signals(r *templates.Renderer, st session.State) map[string]any {
	signals := map[string]any{
		"status":           st.Status,
		"loading":          st.Loading,
		"error":            st.ErrorMessage,
		"filename":         st.Filename,
		"validFeatures":    st.ValidFeatures,
		"invalidFeatures":  st.InvalidFeatures,
		"validationErrors": st.ValidationErrors,
		"baseLayer":        st.Map.BaseLayer,
		"legendVisible":    st.Map.LegendVisible,
		"center":           []float64{st.Map.Viewport.Center.Lat(), st.Map.Viewport.Center.Lon()},
		"zoom":             st.Map.Viewport.Zoom,
		"bounds":           st.Map.Bounds,
	}

	popups := map[string]string{}
	if st.Map.DataLayer != nil {
		signals["layerId"] = st.Map.DataLayer.ID
		for _, p := range st.Map.DataLayer.Popups {
			popups[strconv.Itoa(p.FeatureIndex)] = r.MustRender("popup", p)
		}
	}
	signals["popups"] = popups
	return signals
}

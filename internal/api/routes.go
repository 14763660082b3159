// Package api defines the Huma API routes and handlers.
package api

import (
	"context"
	"errors"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geo-analyzer/internal/history"
	"github.com/joeblew999/geo-analyzer/internal/mapview"
	"github.com/joeblew999/geo-analyzer/internal/report"
	"github.com/joeblew999/geo-analyzer/internal/session"
	"github.com/joeblew999/geo-analyzer/internal/upload"
)

// HistoryLister lists recorded analyses.
type HistoryLister interface {
	List(ctx context.Context, limit int) ([]history.Entry, error)
}

// Services holds the dependencies for API handlers. History may be nil.
type Services struct {
	Session *session.Session
	History HistoryLister
}

// Types

type BaseLayerInput struct {
	Name string `path:"name" doc:"Base layer name" example:"Satellite"`
}

type HistoryInput struct {
	Limit int `query:"limit" default:"50" minimum:"1" maximum:"500" doc:"Maximum entries to return"`
}

type StateOutput struct {
	Body session.State
}

type ReportOutput struct {
	Body report.AnalysisReport
}

type MapOutput struct {
	Body mapview.MapState
}

type HistoryOutput struct {
	Body []history.Entry
}

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

// APIHandler holds all REST API handlers.
type APIHandler struct {
	svc *Services
}

func NewAPIHandler(svc *Services) *APIHandler {
	return &APIHandler{svc: svc}
}

// RegisterRoutes registers every REST route.
func RegisterRoutes(api huma.API, svc *Services) {
	h := NewAPIHandler(svc)
	h.RegisterHealth(api)
	h.RegisterAnalysis(api)
	h.RegisterMap(api)
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterAnalysis registers report, reanalysis and history routes.
func (h *APIHandler) RegisterAnalysis(api huma.API) {
	huma.Get(api, "/api/v1/state", h.GetState, huma.OperationTags("analysis"))
	huma.Get(api, "/api/v1/report", h.GetReport, huma.OperationTags("analysis"))
	huma.Post(api, "/api/v1/reanalyze", h.Reanalyze, huma.OperationTags("analysis"))
	huma.Get(api, "/api/v1/analyses", h.ListAnalyses, huma.OperationTags("analysis"))
}

// RegisterMap registers map state routes.
func (h *APIHandler) RegisterMap(api huma.API) {
	huma.Get(api, "/api/v1/map", h.GetMap, huma.OperationTags("map"))
	huma.Post(api, "/api/v1/map/legend", h.ToggleLegend, huma.OperationTags("map"))
	huma.Put(api, "/api/v1/map/base/{name}", h.SetBaseLayer, huma.OperationTags("map"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: "1.0.0"}}, nil
}

func (h *APIHandler) GetState(ctx context.Context, input *struct{}) (*StateOutput, error) {
	return &StateOutput{Body: h.svc.Session.State()}, nil
}

func (h *APIHandler) GetReport(ctx context.Context, input *struct{}) (*ReportOutput, error) {
	return &ReportOutput{Body: h.svc.Session.Report()}, nil
}

func (h *APIHandler) Reanalyze(ctx context.Context, input *struct{}) (*StateOutput, error) {
	st, err := h.svc.Session.Reanalyze(ctx)
	if err != nil {
		return nil, StatusError(err)
	}
	return &StateOutput{Body: st}, nil
}

func (h *APIHandler) ListAnalyses(ctx context.Context, input *HistoryInput) (*HistoryOutput, error) {
	if h.svc.History == nil {
		return &HistoryOutput{Body: []history.Entry{}}, nil
	}
	entries, err := h.svc.History.List(ctx, input.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to list analyses", err)
	}
	return &HistoryOutput{Body: entries}, nil
}

func (h *APIHandler) GetMap(ctx context.Context, input *struct{}) (*MapOutput, error) {
	return &MapOutput{Body: h.svc.Session.Map()}, nil
}

func (h *APIHandler) ToggleLegend(ctx context.Context, input *struct{}) (*MapOutput, error) {
	return &MapOutput{Body: h.svc.Session.ToggleLegend()}, nil
}

func (h *APIHandler) SetBaseLayer(ctx context.Context, input *BaseLayerInput) (*MapOutput, error) {
	st, err := h.svc.Session.SetBaseLayer(input.Name)
	if err != nil {
		return nil, StatusError(err)
	}
	return &MapOutput{Body: st}, nil
}

// StatusError maps session errors to HTTP problems.
func StatusError(err error) error {
	var renderErr *mapview.RenderError
	switch {
	case errors.Is(err, upload.ErrBusy):
		return huma.Error409Conflict("An analysis is already in progress")
	case errors.Is(err, upload.ErrUnsupportedFile):
		return huma.Error415UnsupportedMediaType(err.Error())
	case errors.Is(err, session.ErrNothingRendered):
		return huma.Error409Conflict("No feature collection has been rendered yet")
	case errors.Is(err, mapview.ErrUnknownBaseLayer):
		return huma.Error404NotFound(err.Error())
	case errors.As(err, &renderErr):
		return huma.Error422UnprocessableEntity(err.Error())
	}
	return huma.Error500InternalServerError("Analysis failed", err)
}

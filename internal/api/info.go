package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/geo-analyzer/internal/mapview"
	"github.com/joeblew999/geo-analyzer/internal/upload"
)

type InfoHandler struct {
	serviceURL string
	dbOK       bool
}

func NewInfoHandler(serviceURL string, dbOK bool) *InfoHandler {
	return &InfoHandler{serviceURL: serviceURL, dbOK: dbOK}
}

func (h *InfoHandler) RegisterRoutes(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name       string   `json:"name" doc:"Service name"`
	Version    string   `json:"version" doc:"Service version"`
	ServiceURL string   `json:"service_url" doc:"Analysis service the client submits to"`
	DB         bool     `json:"db" doc:"Whether analysis history is recorded"`
	Extensions []string `json:"extensions" doc:"Accepted upload extensions"`
	BaseLayers []string `json:"base_layers" doc:"Selectable base layers"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	names := make([]string, 0, len(mapview.BaseLayers))
	for _, b := range mapview.BaseLayers {
		names = append(names, b.Name)
	}
	return &struct{ Body InfoBody }{Body: InfoBody{
		Name:       "geo-analyzer",
		Version:    "0.1.0",
		ServiceURL: h.serviceURL,
		DB:         h.dbOK,
		Extensions: upload.SupportedExtensions,
		BaseLayers: names,
	}}, nil
}

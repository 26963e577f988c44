package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"bank-analytics/internal/domain"
)

//go:embed openapi.yaml
var openapiYAML []byte

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// LoadSpec parses and validates the embedded OpenAPI document.
func LoadSpec(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiYAML)
	if err != nil {
		return nil, fmt.Errorf("load openapi spec: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi spec: %w", err)
	}
	return doc, nil
}

// requestSchema returns the JSON request body schema of the POST operation at
// path, or nil when the document declares none.
func requestSchema(doc *openapi3.T, path string) *openapi3.Schema {
	if doc == nil || doc.Paths == nil {
		return nil
	}
	item := doc.Paths.Value(path)
	if item == nil || item.Post == nil || item.Post.RequestBody == nil || item.Post.RequestBody.Value == nil {
		return nil
	}
	media := item.Post.RequestBody.Value.Content.Get("application/json")
	if media == nil || media.Schema == nil {
		return nil
	}
	return media.Schema.Value
}

// decodeBody reads a JSON body, checks it against the operation's schema and
// decodes it into dst.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, path string, dst any) error {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return domain.ErrValidation("read request body: %v", err)
	}
	var generic any
	if err := json.Unmarshal(data, &generic); err != nil {
		return domain.ErrValidation("invalid JSON body: %v", err)
	}
	if schema := requestSchema(h.spec, path); schema != nil {
		if err := schema.VisitJSON(generic); err != nil {
			return domain.ErrValidation("invalid request body: %v", err)
		}
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return domain.ErrValidation("invalid request body: %v", err)
	}
	return nil
}

func (h *Handler) serveSpec(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.spec)
}

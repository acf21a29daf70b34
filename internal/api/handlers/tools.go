package handlers

import (
	"net/http"

	"github.com/floatchat/floatchat/internal/domain/tools"
)

type ToolsHandler struct {
	registry *tools.Registry
}

func NewToolsHandler(registry *tools.Registry) *ToolsHandler {
	return &ToolsHandler{registry: registry}
}

// List handles GET /api/v1/tools. Tools are returned sorted by name with
// their argument specs so clients can discover the analysis catalog.
func (h *ToolsHandler) List(w http.ResponseWriter, r *http.Request) {
	items := h.registry.List()

	writeJSON(w, http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]int{"total": len(items)},
	})
}

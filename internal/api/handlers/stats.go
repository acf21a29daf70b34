package handlers

import (
	"net/http"

	"github.com/floatchat/floatchat/internal/domain/query"
	"github.com/floatchat/floatchat/internal/infra/llm"
)

// UsageSource exposes the key pool's per-key counters.
type UsageSource interface {
	UsageSnapshot() []llm.KeyUsage
}

// StatsSource exposes aggregated pipeline outcomes.
type StatsSource interface {
	Snapshot() query.StatsSnapshot
}

type StatsHandler struct {
	pool  UsageSource
	stats StatsSource
}

func NewStatsHandler(pool UsageSource, stats StatsSource) *StatsHandler {
	return &StatsHandler{pool: pool, stats: stats}
}

// Stats handles GET /api/v1/stats. Key material is already masked by the
// pool snapshot; nothing sensitive crosses this endpoint.
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{}
	if h.pool != nil {
		out["keys"] = h.pool.UsageSnapshot()
	}
	if h.stats != nil {
		snap := h.stats.Snapshot()
		out["queries"] = snap.Queries
		out["failures"] = snap.Failures
		out["pipelines"] = snap.Pipelines
	}

	writeJSON(w, http.StatusOK, out)
}

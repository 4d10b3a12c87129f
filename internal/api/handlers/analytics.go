// analytics.go — обработчики /api/v1/analytics endpoints.
// Сводка, оконная статистика, топ пинов, дашборд, срезы.
package handlers

import (
	"net/http"

	"github.com/arturkryukov/pinwall/internal/domain/model"
)

// GetOverview — GET /api/v1/analytics/overview.
// Разбивка пинов, взаимодействий и заявок за всё время.
func (h *APIHandler) GetOverview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.analytics.Overview(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

// GetInteractionAnalytics — GET /api/v1/analytics/interactions?days=N.
func (h *APIHandler) GetInteractionAnalytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.InteractionAnalytics(r.Context(), queryInt(r, "days", 0))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GetSubmissionAnalytics — GET /api/v1/analytics/submissions?days=N.
func (h *APIHandler) GetSubmissionAnalytics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.analytics.SubmissionAnalytics(r.Context(), queryInt(r, "days", 0))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// topPinsResponse — список пинов по вовлечённости.
type topPinsResponse struct {
	Pins []*model.TopPin `json:"pins"`
	Days int             `json:"days"`
}

// GetTopPins — GET /api/v1/analytics/top-pins?limit=N&days=N.
// Пины, отсортированные по сумме взаимодействий за окно.
func (h *APIHandler) GetTopPins(w http.ResponseWriter, r *http.Request) {
	days := queryInt(r, "days", 7)
	top, err := h.analytics.TopPins(r.Context(), queryInt(r, "limit", 10), days)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, topPinsResponse{Pins: top, Days: days})
}

// GetDashboard — GET /api/v1/analytics/dashboard.
// Ключевые показатели для оперативной панели.
func (h *APIHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.analytics.Dashboard(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

// snapshotsResponse — список аналитических срезов.
type snapshotsResponse struct {
	Snapshots []*model.AnalyticsSnapshot `json:"snapshots"`
}

// GetSnapshots — GET /api/v1/analytics/snapshots?scope=daily|weekly&limit=N.
// Последние сохранённые срезы (строятся задачами планировщика).
func (h *APIHandler) GetSnapshots(w http.ResponseWriter, r *http.Request) {
	scope := model.SnapshotScope(r.URL.Query().Get("scope"))
	if scope == "" {
		scope = model.SnapshotDaily
	}
	snaps, err := h.analytics.RecentSnapshots(r.Context(), scope, queryInt(r, "limit", 30))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshotsResponse{Snapshots: snaps})
}

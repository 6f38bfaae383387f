package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/gorilla/mux"

	"github.com/fortuna/xgfixtures/internal/cache"
	"github.com/fortuna/xgfixtures/internal/fixture"
	"github.com/fortuna/xgfixtures/internal/gameweek"
	"github.com/fortuna/xgfixtures/internal/ingest/understat"
	"github.com/fortuna/xgfixtures/internal/ranking"
	"github.com/fortuna/xgfixtures/internal/scheduler"
	"github.com/fortuna/xgfixtures/internal/service"
)

// FixtureProvider runs the fixture pipeline.
type FixtureProvider interface {
	ComputeUpcomingFixtures(ctx context.Context) (*service.Result, error)
	Rankings(ctx context.Context) ([]ranking.TeamRanking, error)
	Calendar() gameweek.Calendar
}

// SnapshotLoader returns the last payload stored by the scheduler.
type SnapshotLoader interface {
	LoadSnapshot(ctx context.Context, league, season string) ([]byte, error)
}

// StatusProvider reports scheduler state.
type StatusProvider interface {
	Status() scheduler.Status
}

// HealthCheck probes one dependency.
type HealthCheck func(ctx context.Context) error

// HandlerOptions are the optional collaborators of a Handler.
type HandlerOptions struct {
	League       string
	Season       string
	Snapshots    SnapshotLoader
	Scheduler    StatusProvider
	HealthChecks map[string]HealthCheck
	Logger       log.Logger
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	fixtures FixtureProvider
	opts     HandlerOptions
	logger   log.Logger
}

// NewHandler creates a new handler
func NewHandler(fixtures FixtureProvider, opts HandlerOptions) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &Handler{
		fixtures: fixtures,
		opts:     opts,
		logger:   log.With(logger, "component", "rest"),
	}
}

// HealthCheck reports service health and the state of optional dependencies.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.opts.HealthChecks))
	for name, check := range h.opts.HealthChecks {
		if err := check(ctx); err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}

	body := map[string]interface{}{
		"status":  "healthy",
		"service": "xgfixtures",
		"league":  h.opts.League,
		"season":  h.opts.Season,
	}
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	if len(checks) > 0 {
		body["checks"] = checks
	}
	respondJSON(w, status, body)
}

// GetFixtures returns the bare team → entries view.
func (h *Handler) GetFixtures(w http.ResponseWriter, r *http.Request) {
	res, err := h.fixtures.ComputeUpcomingFixtures(r.Context())
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res.Teams)
}

// GetFixturesEnvelope returns the view with skipped fixtures and ranking state.
func (h *Handler) GetFixturesEnvelope(w http.ResponseWriter, r *http.Request) {
	res, err := h.fixtures.ComputeUpcomingFixtures(r.Context())
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// GetTeamFixtures returns one team's upcoming fixtures.
func (h *Handler) GetTeamFixtures(w http.ResponseWriter, r *http.Request) {
	team := mux.Vars(r)["team"]

	res, err := h.fixtures.ComputeUpcomingFixtures(r.Context())
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}

	entries, ok := res.Teams[team]
	if !ok {
		respondError(w, http.StatusNotFound, "Team not found", fmt.Errorf("no fixtures for %q", team))
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"team":          team,
		"fixtures":      entries,
		"ranking_error": res.RankingError,
	})
}

// GetFixtureSummary totals opponent metrics over a gameweek range. Missing
// bounds default to the calendar's first and last gameweek.
func (h *Handler) GetFixtureSummary(w http.ResponseWriter, r *http.Request) {
	lo, hi := calendarBounds(h.fixtures.Calendar())

	minGW, err := intParam(r, "min_gw", lo)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid min_gw", err)
		return
	}
	maxGW, err := intParam(r, "max_gw", hi)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid max_gw", err)
		return
	}
	// Reject a bad range before hitting upstream.
	if err := service.ValidateRange(minGW, maxGW); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid gameweek range", err)
		return
	}

	res, err := h.fixtures.ComputeUpcomingFixtures(r.Context())
	if err != nil {
		h.respondPipelineError(w, err)
		return
	}

	summary, err := service.Summarize(res.Teams, minGW, maxGW)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid gameweek range", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"min_gw": minGW,
		"max_gw": maxGW,
		"teams":  summary,
	})
}

// GetRankings returns the ranked league table.
func (h *Handler) GetRankings(w http.ResponseWriter, r *http.Request) {
	table, err := h.fixtures.Rankings(r.Context())
	if err != nil {
		var fe *understat.FetchError
		if errors.As(err, &fe) {
			respondError(w, http.StatusBadGateway, "Failed to fetch league table", err)
			return
		}
		level.Error(h.logger).Log("msg", "ranking failed", "err", err)
		respondError(w, http.StatusInternalServerError, "Failed to rank league table", err)
		return
	}
	if table == nil {
		table = []ranking.TeamRanking{}
	}
	respondJSON(w, http.StatusOK, table)
}

type windowPayload struct {
	Gameweek int    `json:"gameweek"`
	Start    string `json:"start"`
	End      string `json:"end"`
}

// GetGameweeks returns the calendar in use.
func (h *Handler) GetGameweeks(w http.ResponseWriter, r *http.Request) {
	windows := h.fixtures.Calendar().Windows()
	out := make([]windowPayload, 0, len(windows))
	for _, win := range windows {
		out = append(out, windowPayload{
			Gameweek: win.Gameweek,
			Start:    win.Start.Format(gameweek.DateLayout),
			End:      win.End.Format(gameweek.DateLayout),
		})
	}
	respondJSON(w, http.StatusOK, out)
}

// LookupGameweek maps ?date=YYYY-MM-DD (or a full fixture datetime) to its
// gameweek.
func (h *Handler) LookupGameweek(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "Missing date parameter", nil)
		return
	}

	t, err := time.Parse(gameweek.DateLayout, raw)
	if err != nil {
		t, err = time.Parse(fixture.DateTimeLayout, raw)
	}
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	body := map[string]interface{}{
		"date":     t.Format(gameweek.DateLayout),
		"gameweek": nil,
		"found":    false,
	}
	if gw, ok := h.fixtures.Calendar().Lookup(t); ok {
		body["gameweek"] = gw
		body["found"] = true
	}
	respondJSON(w, http.StatusOK, body)
}

// GetLatestSnapshot returns the payload of the last scheduled refresh.
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	if h.opts.Snapshots == nil {
		respondError(w, http.StatusNotFound, "Snapshots are disabled", nil)
		return
	}

	payload, err := h.opts.Snapshots.LoadSnapshot(r.Context(), h.opts.League, h.opts.Season)
	if errors.Is(err, cache.ErrMiss) {
		respondError(w, http.StatusNotFound, "No snapshot yet", nil)
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to load snapshot", err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// GetSchedulerStatus reports the refresh scheduler state.
func (h *Handler) GetSchedulerStatus(w http.ResponseWriter, r *http.Request) {
	if h.opts.Scheduler == nil {
		respondError(w, http.StatusNotFound, "Scheduler is disabled", nil)
		return
	}
	respondJSON(w, http.StatusOK, h.opts.Scheduler.Status())
}

func (h *Handler) respondPipelineError(w http.ResponseWriter, err error) {
	if errors.Is(err, service.ErrFixturesUnavailable) {
		level.Warn(h.logger).Log("msg", "upstream fixtures unavailable", "err", err)
		respondError(w, http.StatusBadGateway, "Failed to fetch fixtures", err)
		return
	}
	level.Error(h.logger).Log("msg", "pipeline failed", "err", err)
	respondError(w, http.StatusInternalServerError, "Failed to compute fixtures", err)
}

func calendarBounds(c gameweek.Calendar) (int, int) {
	windows := c.Windows()
	if len(windows) == 0 {
		return 1, 1
	}
	lo, hi := windows[0].Gameweek, windows[0].Gameweek
	for _, w := range windows[1:] {
		lo = min(lo, w.Gameweek)
		hi = max(hi, w.Gameweek)
	}
	return lo, hi
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}

// respondJSON writes a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response
func respondError(w http.ResponseWriter, status int, message string, err error) {
	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}
	respondJSON(w, status, response)
}

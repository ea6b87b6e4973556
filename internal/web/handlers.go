package web

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/hpungsan/nudge/internal/config"
	"github.com/hpungsan/nudge/internal/conversation"
	"github.com/hpungsan/nudge/internal/errors"
	"github.com/hpungsan/nudge/internal/heartbeat"
	"github.com/hpungsan/nudge/internal/meeting"
	"github.com/hpungsan/nudge/internal/ops"
)

const dashboardLookaheadMinutes = 120

// Handlers contains HTTP route handlers for the dashboard.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	hb       *heartbeat.Store
	meetings *meeting.Store
	renderer *Renderer
}

// HandleDashboard handles GET / — the combined status page.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	myTurn, err := ops.Pending(h.db, ops.PendingInput{WaitingFor: conversation.WaitingMyResponse})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	theirTurn, err := ops.Pending(h.db, ops.PendingInput{WaitingFor: conversation.WaitingTheirResponse})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	stats, err := ops.Stats(h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	health, err := ops.Health(h.hb, h.cfg)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	meetingsOut, err := ops.Meetings(h.meetings, h.cfg, ops.MeetingsInput{MinutesAhead: dashboardLookaheadMinutes})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	h.renderer.renderPage(w, "dashboard", DashboardData{
		PageData: PageData{
			Title:   "Nudge",
			Version: h.renderer.version,
		},
		MyTurn:       myTurn,
		TheirTurn:    theirTurn,
		Stats:        stats,
		Services:     health.Services,
		Corrupt:      health.Corrupt,
		Meetings:     meetingViews(meetingsOut.Upcoming, time.Now()),
		CacheValid:   meetingsOut.CacheValid,
		CacheCorrupt: meetingsOut.CacheCorrupt,
	})
}

// HandlePendingAPI handles GET /api/pending — conversation queue as JSON.
func (h *Handlers) HandlePendingAPI(w http.ResponseWriter, r *http.Request) {
	waitingFor := r.URL.Query().Get("waiting_for")
	if waitingFor == "" {
		waitingFor = string(conversation.WaitingMyResponse)
	}

	input := ops.PendingInput{
		WaitingFor:       conversation.Waiting(waitingFor),
		Type:             r.URL.Query().Get("type"),
		OlderThanSeconds: int64(parseIntParam(r, "older_than_seconds", 0)),
		Limit:            parseIntParam(r, "limit", 0),
	}

	result, err := ops.Pending(h.db, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleStatsAPI handles GET /api/stats — queue aggregates as JSON.
func (h *Handlers) HandleStatsAPI(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Stats(h.db)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleHealthAPI handles GET /api/health — service verdicts as JSON.
func (h *Handlers) HandleHealthAPI(w http.ResponseWriter, r *http.Request) {
	result, err := ops.Health(h.hb, h.cfg)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleMeetingsAPI handles GET /api/meetings — upcoming meetings as JSON.
func (h *Handlers) HandleMeetingsAPI(w http.ResponseWriter, r *http.Request) {
	input := ops.MeetingsInput{
		MinutesAhead: parseIntParam(r, "minutes_ahead", dashboardLookaheadMinutes),
	}

	result, err := ops.Meetings(h.meetings, h.cfg, input)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

// HandleResolve handles POST /conversations/{id}/resolve.
func (h *Handlers) HandleResolve(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.renderer.renderError(w, r, errors.NewValidation("conversation ID is required"))
		return
	}

	result, err := ops.Resolve(h.db, ops.ResolveInput{ID: id})
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, result)
		return
	}

	http.Redirect(w, r, "/", http.StatusFound)
}

// meetingViews decorates upcoming meetings for the template: minutes-until
// countdown and markdown-rendered descriptions.
func meetingViews(events []meeting.Event, now time.Time) []MeetingView {
	views := make([]MeetingView, 0, len(events))
	for _, e := range events {
		minutes, err := meeting.MinutesUntil(e, now)
		if err != nil {
			continue
		}
		view := MeetingView{
			Summary:      e.Summary,
			Location:     e.Location,
			MinutesUntil: minutes,
			HTMLLink:     e.HTMLLink,
		}
		if e.Description != "" {
			view.Description = renderMarkdown(e.Description)
		}
		views = append(views, view)
	}
	return views
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

// wantsJSON reports whether the client asked for a JSON response.
func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

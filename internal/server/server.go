package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alfredjeanlab/flowboard/internal/activework"
	"github.com/alfredjeanlab/flowboard/internal/completed"
	"github.com/alfredjeanlab/flowboard/internal/events"
	"github.com/alfredjeanlab/flowboard/internal/model"
	"github.com/alfredjeanlab/flowboard/internal/search"
	"github.com/alfredjeanlab/flowboard/internal/store"
	snapshot "github.com/alfredjeanlab/flowboard/internal/sync"
)

// Defaults used when a request leaves the profile or query id empty.
const (
	DefaultProfileID = "default"
	DefaultQueryID   = "default"
)

// MaxWeeks bounds the completed-items window a client may request.
const MaxWeeks = 52

// DashboardServer serves active-work and completed-items views computed from
// the issues held in the store.
type DashboardServer struct {
	store     store.Store
	publisher events.Publisher

	// overlay is applied on top of the stored settings for every request.
	overlay   model.AppSettings
	scheduler *snapshot.Scheduler
	hub       *eventHub
	now       func() time.Time
	startedAt time.Time
}

// NewDashboardServer returns a new DashboardServer backed by the given store and publisher.
func NewDashboardServer(s store.Store, p events.Publisher) *DashboardServer {
	return &DashboardServer{
		store:     s,
		publisher: p,
		hub:       newEventHub(),
		now:       time.Now,
		startedAt: time.Now().UTC(),
	}
}

// SetSettingsOverlay installs settings that take precedence over stored ones.
func (s *DashboardServer) SetSettingsOverlay(overlay model.AppSettings) {
	s.overlay = overlay
}

// SetScheduler attaches the snapshot scheduler reported by the health endpoint.
func (s *DashboardServer) SetScheduler(sched *snapshot.Scheduler) {
	s.scheduler = sched
}

// inputError indicates invalid user input.
// Transport layers map this to 400 / InvalidArgument.
type inputError string

func (e inputError) Error() string { return string(e) }

// Scope names one stored issue set.
type Scope struct {
	ProfileID string `json:"profile_id"`
	QueryID   string `json:"query_id"`
}

func (sc Scope) withDefaults() Scope {
	if sc.ProfileID == "" {
		sc.ProfileID = DefaultProfileID
	}
	if sc.QueryID == "" {
		sc.QueryID = DefaultQueryID
	}
	return sc
}

// ActiveWorkResponse is the payload of the active-work view.
type ActiveWorkResponse struct {
	Scope
	Query       string           `json:"query,omitempty"`
	Strict      bool             `json:"strict,omitempty"`
	QueryValid  bool             `json:"query_valid"`
	Problems    []search.Problem `json:"problems,omitempty"`
	GeneratedAt time.Time        `json:"generated_at"`
	activework.Data
}

// CompletedResponse is the payload of the completed-items view.
type CompletedResponse struct {
	Scope
	GeneratedAt time.Time             `json:"generated_at"`
	Weeks       []model.CompletedWeek `json:"weeks"`
}

// ValidateResponse reports whether a query passes strict validation.
type ValidateResponse struct {
	Query    string           `json:"query"`
	Valid    bool             `json:"valid"`
	Parsed   string           `json:"parsed,omitempty"`
	Problems []search.Problem `json:"problems,omitempty"`
}

// ImportResponse summarises a POST /v1/issues.
type ImportResponse struct {
	Scope
	Count int `json:"count"`
}

// Settings returns the effective settings: stored values, then the overlay,
// then defaults.
func (s *DashboardServer) Settings(ctx context.Context) (model.AppSettings, error) {
	stored, err := store.LoadAppSettings(ctx, s.store)
	if err != nil {
		return model.AppSettings{}, err
	}
	return stored.Merge(s.overlay).WithDefaults(), nil
}

// UpdateSettings stores settings and announces the change.
func (s *DashboardServer) UpdateSettings(ctx context.Context, settings model.AppSettings) (model.AppSettings, error) {
	if err := store.SaveAppSettings(ctx, s.store, settings); err != nil {
		return model.AppSettings{}, err
	}
	effective, err := s.Settings(ctx)
	if err != nil {
		return model.AppSettings{}, err
	}
	s.publish(ctx, events.TopicSettingsUpdated, events.SettingsUpdated{Settings: effective})
	return effective, nil
}

// ActiveWork aggregates the scope's issues and filters the timeline by query.
// In strict mode a query that fails validation is reported through
// QueryValid and Problems and the timeline is left unfiltered.
func (s *DashboardServer) ActiveWork(ctx context.Context, scope Scope, query string, strict bool) (*ActiveWorkResponse, error) {
	scope = scope.withDefaults()
	settings, issues, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	data := activework.ActiveWorkData(issues, activework.Options{
		ParentField:     settings.ParentField(),
		FlowEndStatuses: settings.FlowEndStatuses(),
		FlowWIPStatuses: settings.FlowWIPStatuses(),
		Now:             now,
	})

	resp := &ActiveWorkResponse{
		Scope:       scope,
		Query:       query,
		Strict:      strict,
		QueryValid:  true,
		GeneratedAt: now,
	}

	expr, perr := search.Parse(query)
	switch {
	case strict:
		resp.Problems = search.ValidateStrict(data.Timeline, query)
		resp.QueryValid = len(resp.Problems) == 0
	case perr != nil:
		resp.QueryValid = false
		resp.Problems = []search.Problem{{Message: perr.Error()}}
	}
	if resp.QueryValid && expr != nil {
		data.Timeline = search.FilterTimelineExpr(data.Timeline, expr)
	}
	resp.Data = data

	s.publish(ctx, events.TopicActiveWorkComputed, activeWorkEvent(resp))
	return resp, nil
}

// Completed summarises the completed items of the last weeks.
func (s *DashboardServer) Completed(ctx context.Context, scope Scope, weeks int) (*CompletedResponse, error) {
	scope = scope.withDefaults()
	if weeks < 0 || weeks > MaxWeeks {
		return nil, inputError(fmt.Sprintf("weeks must be between 1 and %d", MaxWeeks))
	}
	settings, issues, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	resp := &CompletedResponse{
		Scope:       scope,
		GeneratedAt: now,
		Weeks: completed.ItemsByWeek(issues, completed.Options{
			Weeks:           weeks,
			FlowEndStatuses: settings.FlowEndStatuses(),
			ParentField:     settings.ParentField(),
			Now:             now,
		}),
	}

	ev := events.CompletedComputed{ProfileID: scope.ProfileID, QueryID: scope.QueryID, Weeks: len(resp.Weeks)}
	for _, w := range resp.Weeks {
		ev.TotalIssues += w.TotalIssues
		ev.TotalPoints += w.TotalPoints
	}
	s.publish(ctx, events.TopicCompletedComputed, ev)
	return resp, nil
}

// ValidateQuery checks query in strict mode against the scope's unfiltered
// active-work timeline.
func (s *DashboardServer) ValidateQuery(ctx context.Context, scope Scope, query string) (*ValidateResponse, error) {
	scope = scope.withDefaults()
	settings, issues, err := s.load(ctx, scope)
	if err != nil {
		return nil, err
	}
	data := activework.ActiveWorkData(issues, activework.Options{
		ParentField:     settings.ParentField(),
		FlowEndStatuses: settings.FlowEndStatuses(),
		FlowWIPStatuses: settings.FlowWIPStatuses(),
		Now:             s.now().UTC(),
	})

	resp := &ValidateResponse{Query: query}
	resp.Problems = search.ValidateStrict(data.Timeline, query)
	resp.Valid = len(resp.Problems) == 0
	if expr, err := search.Parse(query); err == nil && expr != nil {
		resp.Parsed = expr.String()
	}
	return resp, nil
}

// ImportIssues replaces the scope's issues with the given raw issue JSON
// array (flat or nested shape).
func (s *DashboardServer) ImportIssues(ctx context.Context, scope Scope, raw []byte) (*ImportResponse, error) {
	scope = scope.withDefaults()
	issues, err := model.DecodeIssues(raw)
	if err != nil {
		return nil, inputError(err.Error())
	}
	if err := model.ValidateIssues(issues); err != nil {
		return nil, err
	}
	for _, iss := range issues {
		iss.Health = nil
	}
	if err := s.store.ReplaceIssues(ctx, scope.ProfileID, scope.QueryID, issues); err != nil {
		return nil, fmt.Errorf("store issues: %w", err)
	}

	s.publish(ctx, events.TopicIssuesImported, events.IssuesImported{
		ProfileID: scope.ProfileID,
		QueryID:   scope.QueryID,
		Count:     len(issues),
	})
	return &ImportResponse{Scope: scope, Count: len(issues)}, nil
}

// Profiles lists the stored issue sets.
func (s *DashboardServer) Profiles(ctx context.Context) ([]model.ProfileQuery, error) {
	profiles, err := s.store.ListProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	if profiles == nil {
		profiles = []model.ProfileQuery{}
	}
	return profiles, nil
}

func (s *DashboardServer) load(ctx context.Context, scope Scope) (model.AppSettings, []*model.Issue, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return model.AppSettings{}, nil, err
	}
	issues, err := s.store.ListIssues(ctx, scope.ProfileID, scope.QueryID)
	if err != nil {
		return model.AppSettings{}, nil, fmt.Errorf("list issues: %w", err)
	}
	return settings, issues, nil
}

// publish is best-effort; failures are logged but do not fail the request.
// Stream clients receive the event even when the bus is unavailable.
func (s *DashboardServer) publish(ctx context.Context, topic string, event any) {
	if err := s.publisher.Publish(ctx, topic, event); err != nil {
		slog.Warn("failed to publish event", "topic", topic, "error", err)
	}
	env, err := events.NewEnvelope(topic, event, s.now())
	if err != nil {
		slog.Warn("failed to wrap event", "topic", topic, "error", err)
		return
	}
	s.hub.broadcast(env)
}

func activeWorkEvent(resp *ActiveWorkResponse) events.ActiveWorkComputed {
	ev := events.ActiveWorkComputed{
		ProfileID: resp.ProfileID,
		QueryID:   resp.QueryID,
		Query:     resp.Query,
		Epics:     len(resp.Timeline),
		ThisWeek:  len(resp.ThisWeekIssues),
		LastWeek:  len(resp.LastWeekIssues),
	}
	for _, list := range [][]*model.Issue{resp.ThisWeekIssues, resp.LastWeekIssues} {
		for _, iss := range list {
			if iss.Health != nil && iss.Health.IsBlocked {
				ev.Blocked++
			}
		}
	}
	if len(resp.Timeline) > 0 {
		var sum float64
		for _, g := range resp.Timeline {
			sum += g.CompletionPct
		}
		ev.AvgPct = sum / float64(len(resp.Timeline))
	}
	return ev
}

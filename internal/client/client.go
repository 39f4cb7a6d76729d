// Package client provides a transport-agnostic interface for the flowboard
// service and an HTTP/JSON implementation that talks to its REST API.
package client

import (
	"context"
	"encoding/json"

	"github.com/alfredjeanlab/flowboard/internal/events"
	"github.com/alfredjeanlab/flowboard/internal/model"
	"github.com/alfredjeanlab/flowboard/internal/server"
)

// DashboardClient is the interface the fb CLI uses to talk to the server.
type DashboardClient interface {
	// Views
	ActiveWork(ctx context.Context, req *ActiveWorkRequest) (*server.ActiveWorkResponse, error)
	Completed(ctx context.Context, scope Scope, weeks int) (*server.CompletedResponse, error)
	ValidateQuery(ctx context.Context, scope Scope, query string) (*server.ValidateResponse, error)

	// Issues
	ImportIssues(ctx context.Context, scope Scope, issues json.RawMessage) (*server.ImportResponse, error)
	Profiles(ctx context.Context) ([]model.ProfileQuery, error)

	// Settings
	GetSettings(ctx context.Context) (*model.AppSettings, error)
	UpdateSettings(ctx context.Context, settings model.AppSettings) (*model.AppSettings, error)

	// Saved views
	ListViews(ctx context.Context) ([]server.View, error)
	GetView(ctx context.Context, name string) (*server.View, error)
	SaveView(ctx context.Context, name, query string) (*server.View, error)
	DeleteView(ctx context.Context, name string) error

	// Events streams server events until ctx is done.
	Events(ctx context.Context, topics []string, fn func(*events.Envelope)) error

	// Health
	Health(ctx context.Context) (string, error)

	// Lifecycle
	Close() error
}

// Scope selects a stored issue set; empty fields use the server defaults.
type Scope struct {
	ProfileID string
	QueryID   string
}

// ActiveWorkRequest holds parameters for the active-work view.
type ActiveWorkRequest struct {
	Scope
	Query  string
	Strict bool
	View   string
}

package store

import (
	"context"

	"github.com/alfredjeanlab/flowboard/internal/model"
)

// Store defines the persistence interface for imported issues and app state.
type Store interface {
	// Issues, grouped by profile and saved query
	ListIssues(ctx context.Context, profileID, queryID string) ([]*model.Issue, error)
	ReplaceIssues(ctx context.Context, profileID, queryID string, issues []*model.Issue) error
	ListProfiles(ctx context.Context) ([]model.ProfileQuery, error)

	// App state
	GetAppState(ctx context.Context, key string) (*model.AppState, error)
	SetAppState(ctx context.Context, state *model.AppState) error
	ListAppState(ctx context.Context, namespace string) ([]*model.AppState, error)
	DeleteAppState(ctx context.Context, key string) error

	// Transaction support
	RunInTransaction(ctx context.Context, fn func(tx Store) error) error

	// Lifecycle
	Close() error
}

package sync

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"strings"
	gosync "sync"

	"github.com/alfredjeanlab/flowboard/internal/model"
	"github.com/alfredjeanlab/flowboard/internal/store"
)

// mockStore is a minimal in-memory store for sync tests.
type mockStore struct {
	mu      gosync.Mutex
	issues  map[model.ProfileQuery][]*model.Issue
	states  map[string]*model.AppState
	listErr error
}

func newMockStore() *mockStore {
	return &mockStore{
		issues: make(map[model.ProfileQuery][]*model.Issue),
		states: make(map[string]*model.AppState),
	}
}

func pq(profileID, queryID string) model.ProfileQuery {
	return model.ProfileQuery{ProfileID: profileID, QueryID: queryID}
}

func (m *mockStore) ListIssues(_ context.Context, profileID, queryID string) ([]*model.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.issues[pq(profileID, queryID)], nil
}

func (m *mockStore) ReplaceIssues(_ context.Context, profileID, queryID string, issues []*model.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issues[pq(profileID, queryID)] = issues
	return nil
}

func (m *mockStore) ListProfiles(_ context.Context) ([]model.ProfileQuery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.ProfileQuery
	for k, v := range m.issues {
		k.IssueCount = len(v)
		out = append(out, k)
	}
	return out, nil
}

func (m *mockStore) GetAppState(_ context.Context, key string) (*model.AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.states[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return st, nil
}

func (m *mockStore) SetAppState(_ context.Context, state *model.AppState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[state.Key] = state
	return nil
}

func (m *mockStore) ListAppState(_ context.Context, namespace string) ([]*model.AppState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AppState
	for k, st := range m.states {
		if namespace == "" || strings.HasPrefix(k, namespace+":") {
			out = append(out, st)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *mockStore) DeleteAppState(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.states[key]; !ok {
		return sql.ErrNoRows
	}
	delete(m.states, key)
	return nil
}

func (m *mockStore) RunInTransaction(_ context.Context, fn func(tx store.Store) error) error {
	return fn(m)
}

func (m *mockStore) Close() error {
	return nil
}

var errMockList = errors.New("mock list failure")

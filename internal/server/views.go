package server

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/alfredjeanlab/flowboard/internal/model"
	"github.com/alfredjeanlab/flowboard/internal/search"
)

// viewNamespace is the app-state namespace of saved search views.
const viewNamespace = "view"

// View is a named search query.
type View struct {
	Name    string `json:"name"`
	Query   string `json:"query"`
	Builtin bool   `json:"builtin,omitempty"`
}

// builtinViews are returned when no stored view of the same name exists.
var builtinViews = map[string]View{
	"bugs":    {Name: "bugs", Query: "issuetype:Bug", Builtin: true},
	"stories": {Name: "stories", Query: "issuetype:Story", Builtin: true},
	"all":     {Name: "all", Query: "", Builtin: true},
}

func viewKey(name string) string { return viewNamespace + ":" + name }

func validViewName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ": \t\n")
}

// View returns the stored view, falling back to the builtins.
func (s *DashboardServer) View(ctx context.Context, name string) (View, error) {
	st, err := s.store.GetAppState(ctx, viewKey(name))
	if errors.Is(err, sql.ErrNoRows) {
		if v, ok := builtinViews[name]; ok {
			return v, nil
		}
		return View{}, err
	}
	if err != nil {
		return View{}, fmt.Errorf("get view %s: %w", name, err)
	}
	v := View{Name: name}
	if err := st.Decode(&v.Query); err != nil {
		return View{}, fmt.Errorf("decode view %s: %w", name, err)
	}
	return v, nil
}

// Views lists stored views merged with the builtins, sorted by name.
func (s *DashboardServer) Views(ctx context.Context) ([]View, error) {
	states, err := s.store.ListAppState(ctx, viewNamespace)
	if err != nil {
		return nil, fmt.Errorf("list views: %w", err)
	}
	byName := make(map[string]View, len(states)+len(builtinViews))
	for name, v := range builtinViews {
		byName[name] = v
	}
	for _, st := range states {
		_, name, _ := strings.Cut(st.Key, ":")
		v := View{Name: name}
		if err := st.Decode(&v.Query); err != nil {
			return nil, fmt.Errorf("decode view %s: %w", name, err)
		}
		byName[name] = v
	}
	out := make([]View, 0, len(byName))
	for _, v := range byName {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SaveView stores a view after checking that its query parses.
func (s *DashboardServer) SaveView(ctx context.Context, v View) (View, error) {
	if !validViewName(v.Name) {
		return View{}, inputError(fmt.Sprintf("invalid view name %q", v.Name))
	}
	if _, err := search.Parse(v.Query); err != nil {
		return View{}, inputError(err.Error())
	}
	value, err := json.Marshal(v.Query)
	if err != nil {
		return View{}, fmt.Errorf("encode view: %w", err)
	}
	if err := s.store.SetAppState(ctx, &model.AppState{Key: viewKey(v.Name), Value: value}); err != nil {
		return View{}, fmt.Errorf("save view %s: %w", v.Name, err)
	}
	v.Builtin = false
	return v, nil
}

// DeleteView removes a stored view. Builtins cannot be deleted.
func (s *DashboardServer) DeleteView(ctx context.Context, name string) error {
	err := s.store.DeleteAppState(ctx, viewKey(name))
	if errors.Is(err, sql.ErrNoRows) {
		if _, ok := builtinViews[name]; ok {
			return inputError(fmt.Sprintf("view %q is builtin", name))
		}
	}
	return err
}

// handleListViews handles GET /v1/views.
func (s *DashboardServer) handleListViews(w http.ResponseWriter, r *http.Request) {
	views, err := s.Views(r.Context())
	if err != nil {
		writeHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"views": views})
}

// handleGetView handles GET /v1/views/{name}.
func (s *DashboardServer) handleGetView(w http.ResponseWriter, r *http.Request) {
	v, err := s.View(r.Context(), r.PathValue("name"))
	if err != nil {
		writeHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleSaveView handles PUT /v1/views/{name} with body {"query": "..."}.
func (s *DashboardServer) handleSaveView(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query string `json:"query"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	v, err := s.SaveView(r.Context(), View{Name: r.PathValue("name"), Query: req.Query})
	if err != nil {
		writeHTTPError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// handleDeleteView handles DELETE /v1/views/{name}.
func (s *DashboardServer) handleDeleteView(w http.ResponseWriter, r *http.Request) {
	if err := s.DeleteView(r.Context(), r.PathValue("name")); err != nil {
		writeHTTPError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/pkgscout/pkgscout/pkg/feed"
	"github.com/pkgscout/pkgscout/pkg/loader"
)

// pollInterval is how often the handler checks for fetch completion.
const pollInterval = 25 * time.Millisecond

type searchItem struct {
	Name           string `json:"name"`
	Version        string `json:"version"`
	Description    string `json:"description,omitempty"`
	Downloads      int64  `json:"downloads,omitempty"`
	RepoURL        string `json:"repo_url,omitempty"`
	PrefixReserved bool   `json:"prefix_reserved,omitempty"`
	Source         string `json:"source"`
}

type searchResponse struct {
	SearchID string            `json:"search_id"`
	Query    string            `json:"query"`
	Status   string            `json:"status"`
	Items    []searchItem      `json:"items"`
	Sources  map[string]string `json:"sources"`
}

// handleSearch drives a bounded incremental search and returns the merged
// pages. Query parameters: q (required), pages, page_size, prerelease.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := feed.Query{
		Text:              r.URL.Query().Get("q"),
		IncludePrerelease: boolParam(r, "prerelease"),
		PageSize:          intParam(r, "page_size", feed.DefaultPageSize),
	}
	if q.Text == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	pages := intParam(r, "pages", 1)
	if pages < 1 {
		pages = 1
	}
	if pages > maxPagesPerRequest {
		pages = maxPagesPerRequest
	}

	ctx, cancel := context.WithTimeout(r.Context(), searchTimeout)
	defer cancel()

	ld := loader.New(s.feed)
	ld.StartSearch(q)

	var state loader.State
	for page := 0; page < pages; page++ {
		if err := ld.LoadNext(ctx); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		state = waitForPage(ctx, ld)
		if state.Status.Terminal() {
			break
		}
	}

	switch state.Status {
	case feed.StatusError:
		writeError(w, http.StatusBadGateway, "all sources failed")
		return
	case feed.StatusCancelled:
		writeError(w, http.StatusGatewayTimeout, "search timed out")
		return
	}

	items := ld.Current()
	resp := searchResponse{
		SearchID: state.SearchID.String(),
		Query:    q.Text,
		Status:   state.Status.String(),
		Items:    make([]searchItem, 0, len(items)),
		Sources:  sourceStatuses(ld),
	}
	for _, it := range items {
		resp.Items = append(resp.Items, searchItem{
			Name:           it.Name,
			Version:        it.Version,
			Description:    it.Description,
			Downloads:      it.Downloads,
			RepoURL:        it.RepoURL,
			PrefixReserved: it.PrefixReserved,
			Source:         it.Source,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func waitForPage(ctx context.Context, ld *loader.Loader) loader.State {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		ld.UpdateState(ctx)
		state := ld.State()
		if state.Status != feed.StatusLoading {
			return state
		}
		select {
		case <-ctx.Done():
			ld.UpdateState(ctx)
			return ld.State()
		case <-ticker.C:
		}
	}
}

func sourceStatuses(ld *loader.Loader) map[string]string {
	statuses := ld.Statuses()
	out := make(map[string]string, len(statuses))
	for name, st := range statuses {
		out[name] = st.String()
	}
	return out
}

func intParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func boolParam(r *http.Request, name string) bool {
	v, err := strconv.ParseBool(r.URL.Query().Get(name))
	return err == nil && v
}

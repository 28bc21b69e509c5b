package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"leangraph/internal/depgraph"
	"leangraph/internal/export"
	"leangraph/internal/index"
	"leangraph/internal/pipeline"
)

const defaultListLimit = 100

// handleListDecls lists declarations from the current snapshot in
// ingestion order, filtered by name prefix and display kind.
func (s *Server) handleListDecls(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	prefix := r.URL.Query().Get("prefix")
	kind := r.URL.Query().Get("kind")
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	var decls []map[string]any
	for d := range snap.Index.Declarations() {
		if prefix != "" && !strings.HasPrefix(d.Name, prefix) {
			continue
		}
		if kind != "" && d.DisplayKind() != kind {
			continue
		}
		decls = append(decls, map[string]any{
			"name":         d.Name,
			"kind":         d.Kind,
			"display_kind": d.DisplayKind(),
			"file":         d.File,
			"line":         d.Line,
		})
		if len(decls) >= limit {
			break
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"label":        snap.Index.Label(),
		"count":        len(decls),
		"declarations": decls,
	})
}

func (s *Server) handleGetDecl(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	name := chi.URLParam(r, "name")
	d, err := snap.Index.Lookup(name)
	if err != nil {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d)
}

// handlePrune applies prune criteria to the current snapshot, persists
// the reduced index and publishes the rebuilt snapshot.
func (s *Server) handlePrune(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	var req struct {
		index.Criteria
		Foundations bool `json:"foundations"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		jsonError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	crit := req.Criteria
	if req.Foundations {
		defaults := depgraph.DefaultFoundations()
		crit.Names = append(crit.Names, defaults.Names...)
	}

	before := snap.Index.Len()
	pruned := snap.Index.Prune(crit)

	next, err := pipeline.BuildSnapshot(pruned, pipeline.BuildOptions(s.cfg)...)
	if err != nil {
		jsonError(w, "rebuild after prune: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if err := pruned.Dump(s.orchestrator.Store()); err != nil {
		jsonError(w, "persist pruned index: "+err.Error(), http.StatusInternalServerError)
		return
	}
	s.orchestrator.Holder().Publish(next)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"before": before,
		"after":  pruned.Len(),
	})
}

func (s *Server) handleGraphSummary(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"label":           snap.Index.Label(),
		"nodes":           snap.Graph.Len(),
		"edges":           snap.Graph.EdgeCount(),
		"built":           snap.Built,
		"skip_auxiliary":  s.cfg.SkipAuxiliary,
		"skip_structural": s.cfg.SkipStructural,
	})
}

// handleComponent returns the ancestor component of one declaration as
// a node/edge listing.
func (s *Server) handleComponent(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	name := chi.URLParam(r, "name")
	sub, err := snap.Graph.ComponentOf(name)
	if err != nil {
		var notFound *index.NotFoundError
		if errors.As(err, &notFound) {
			jsonError(w, err.Error(), http.StatusNotFound)
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":  name,
		"nodes": sub.NodeNames(),
		"edges": slices.Collect(sub.Edges()),
	})
}

func (s *Server) handleTopo(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	order, err := snap.Graph.TopoSort()
	if err != nil {
		var cycle *depgraph.CycleDetectedError
		if errors.As(err, &cycle) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusConflict)
			json.NewEncoder(w).Encode(map[string]any{
				"error": err.Error(),
				"cycle": cycle.Names,
			})
			return
		}
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"order": order})
}

var exportContentTypes = map[string]string{
	"gexf":   "application/xml",
	"dot":    "text/vnd.graphviz",
	"gv":     "text/vnd.graphviz",
	"jsonl":  "application/x-ndjson",
	"ndjson": "application/x-ndjson",
}

// handleExport streams the graph in the requested format.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}

	format := strings.ToLower(r.URL.Query().Get("format"))
	if !export.IsSupportedFormat(format) {
		jsonError(w, fmt.Sprintf("unsupported export format: %q", format), http.StatusBadRequest)
		return
	}
	exp, err := export.ForFormat(format)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", exportContentTypes[format])
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", snap.Index.Label()+"."+format))
	if err := exp.Export(w, snap.Graph); err != nil {
		s.log.Error("export failed", "format", format, "error", err)
	}
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	snap := s.snapshot(w)
	if snap == nil {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"corpus":      snap.Stats,
		"runner":      s.orchestrator.RunnerStats().Snapshot(),
		"queue_depth": s.orchestrator.QueueDepth(),
	})
}

package api

import (
	"net/http"

	"github.com/dgallion1/ragutil/internal/remote"
)

type remoteUnitsRequest struct {
	Endpoint string            `json:"endpoint"`
	Path     string            `json:"path"`
	Which    string            `json:"which"`
	Headers  map[string]string `json:"headers,omitempty"`
}

func (s *Server) handleRemoteUnits(w http.ResponseWriter, r *http.Request) {
	var req remoteUnitsRequest
	if !decodeBody(w, r, &req) || !required(w, "endpoint", req.Endpoint) || !required(w, "path", req.Path) {
		return
	}
	units, err := s.remote.ExtractUnits(r.Context(), req.Endpoint, req.Path, remote.ParseMode(req.Which), req.Headers)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, units)
}

type remoteTableRequest struct {
	Endpoint string `json:"endpoint"`
	Path     string `json:"path"`
}

func (s *Server) handleRemoteTable(w http.ResponseWriter, r *http.Request) {
	var req remoteTableRequest
	if !decodeBody(w, r, &req) || !required(w, "endpoint", req.Endpoint) || !required(w, "path", req.Path) {
		return
	}
	table, err := s.remote.FetchTableFromFile(r.Context(), req.Endpoint, req.Path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, table)
}

type remoteTableURLRequest struct {
	Endpoint string `json:"endpoint"`
	URL      string `json:"url"`
}

func (s *Server) handleRemoteTableFromURL(w http.ResponseWriter, r *http.Request) {
	var req remoteTableURLRequest
	if !decodeBody(w, r, &req) || !required(w, "endpoint", req.Endpoint) || !required(w, "url", req.URL) {
		return
	}
	table, err := s.remote.FetchTableFromURL(r.Context(), req.Endpoint, req.URL)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, table)
}

type remoteStatsResponse struct {
	Overall remote.StatsSnapshot            `json:"overall"`
	ByOp    map[string]remote.StatsSnapshot `json:"by_op"`
}

func (s *Server) handleRemoteStats(w http.ResponseWriter, r *http.Request) {
	stats := s.remote.Stats
	if stats == nil {
		writeJSON(w, remoteStatsResponse{ByOp: map[string]remote.StatsSnapshot{}})
		return
	}
	writeJSON(w, remoteStatsResponse{
		Overall: stats.Snapshot(),
		ByOp:    stats.SnapshotByOp(),
	})
}

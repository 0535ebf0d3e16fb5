package api

import (
	"net/http"

	"github.com/dgallion1/ragutil/internal/chunkfile"
	"github.com/dgallion1/ragutil/internal/delimit"
	"github.com/dgallion1/ragutil/internal/dom"
	"github.com/dgallion1/ragutil/internal/sheet"
	"github.com/dgallion1/ragutil/internal/textio"
	"github.com/dgallion1/ragutil/internal/tree"
)

type pathRequest struct {
	Path string `json:"path"`
}

func (s *Server) handleScanTree(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decodeBody(w, r, &req) || !required(w, "path", req.Path) {
		return
	}
	node, err := tree.Scan(req.Path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, node)
}

type readFilesRequest struct {
	Paths    []string `json:"paths"`
	MaxBytes int64    `json:"maxBytes,omitempty"`
}

func (s *Server) handleReadFiles(w http.ResponseWriter, r *http.Request) {
	var req readFilesRequest
	if !decodeBody(w, r, &req) {
		return
	}
	maxBytes := req.MaxBytes
	if maxBytes <= 0 {
		maxBytes = s.cfg.MaxReadBytes
	}
	files, err := textio.ReadTextFiles(r.Context(), req.Paths, maxBytes, s.cfg.ReadConcurrency)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, files)
}

func (s *Server) handleInspectSheet(w http.ResponseWriter, r *http.Request) {
	var req pathRequest
	if !decodeBody(w, r, &req) || !required(w, "path", req.Path) {
		return
	}
	info, err := sheet.Inspect(req.Path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, info)
}

type sheetUnitsRequest struct {
	Path   string       `json:"path"`
	Config sheet.Config `json:"config"`
}

func (s *Server) handleSheetUnits(w http.ResponseWriter, r *http.Request) {
	var req sheetUnitsRequest
	if !decodeBody(w, r, &req) || !required(w, "path", req.Path) {
		return
	}
	units, err := sheet.ExtractUnits(req.Path, req.Config)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, units)
}

type delimitedUnitsRequest struct {
	Path   string `json:"path"`
	Config struct {
		Delimiter string `json:"delimiter"`
		IDCapture string `json:"idCapture"`
		Flags     string `json:"flags"`
	} `json:"config"`
}

func (s *Server) handleDelimitedUnits(w http.ResponseWriter, r *http.Request) {
	var req delimitedUnitsRequest
	if !decodeBody(w, r, &req) || !required(w, "path", req.Path) {
		return
	}
	units, err := delimit.ExtractFile(req.Path, delimit.Config{
		Delimiter: req.Config.Delimiter,
		IDCapture: req.Config.IDCapture,
		Flags:     delimit.ParseFlags(req.Config.Flags),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, units)
}

type htmlUnitsRequest struct {
	Path   string     `json:"path"`
	Config dom.Config `json:"config"`
}

func (s *Server) handleHTMLUnits(w http.ResponseWriter, r *http.Request) {
	var req htmlUnitsRequest
	if !decodeBody(w, r, &req) || !required(w, "path", req.Path) {
		return
	}
	units, err := dom.ExtractFile(req.Path, req.Config)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, units)
}

type saveChunkRequest struct {
	Dir      string `json:"dir"`
	Base     string `json:"base"`
	Ext      string `json:"ext,omitempty"`
	Contents string `json:"contents"`
}

func (s *Server) handleSaveChunk(w http.ResponseWriter, r *http.Request) {
	var req saveChunkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	path, err := chunkfile.Save(req.Dir, req.Base, req.Ext, req.Contents)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.log.Debug().Str("path", path).Int("bytes", len(req.Contents)).Msg("chunk saved")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, map[string]string{"path": path})
}

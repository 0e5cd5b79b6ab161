package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/leapstack-labs/sqlsense/internal/completion"
	"github.com/leapstack-labs/sqlsense/internal/diagnostic"
	"github.com/leapstack-labs/sqlsense/internal/engine"
	"github.com/leapstack-labs/sqlsense/internal/refactor"
	"github.com/leapstack-labs/sqlsense/internal/schema"
	"github.com/leapstack-labs/sqlsense/pkg/dialect"
	"github.com/leapstack-labs/sqlsense/pkg/token"
)

const maxBody = 4 << 20

// Request addresses a position in a buffer. Offset wins over Line and
// Character (both zero-based); with neither the cursor sits at the end of
// the text.
type Request struct {
	Text      string `json:"text"`
	Offset    *int   `json:"offset,omitempty"`
	Line      *int   `json:"line,omitempty"`
	Character int    `json:"character,omitempty"`

	Manual  bool   `json:"manual,omitempty"`
	NewName string `json:"new_name,omitempty"`
}

func (r Request) offset() int {
	switch {
	case r.Offset != nil:
		return max(0, min(*r.Offset, len(r.Text)))
	case r.Line != nil:
		return token.OffsetAt(r.Text, *r.Line, r.Character)
	default:
		return len(r.Text)
	}
}

// CompletionResponse is the body of /api/complete.
type CompletionResponse struct {
	Loading bool              `json:"loading"`
	Items   []completion.Item `json:"items"`
}

// StatusResponse is the body of /api/status.
type StatusResponse struct {
	Version string `json:"version,omitempty"`
	SchemaEvent
}

// DialectInfo is one entry of /api/dialects.
type DialectInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"`
	Active      bool   `json:"active"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, StatusResponse{Version: s.version, SchemaEvent: s.schemaEvent()})
}

func (s *Server) dialects(w http.ResponseWriter, _ *http.Request) {
	active := s.engine.Dialect().Name
	var out []DialectInfo
	for _, name := range dialect.List() {
		d, _ := dialect.Get(name)
		out = append(out, DialectInfo{
			Name:        d.Name,
			DisplayName: d.DisplayName,
			Kind:        d.Kind.String(),
			Active:      d.Name == active,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) schema(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Schema().Fixture())
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	ch := s.engine.Refresh()
	select {
	case res := <-ch:
		// Only an immediate answer is an error; fetches finish later.
		if errors.Is(res.Err, engine.ErrNotConnected) {
			writeError(w, http.StatusConflict, res.Err)
			return
		}
		writeResult(w, res)
	default:
		if r.URL.Query().Get("wait") != "true" {
			writeJSON(w, http.StatusAccepted, map[string]bool{"loading": true})
			return
		}
		select {
		case res := <-ch:
			writeResult(w, res)
		case <-r.Context().Done():
		}
	}
}

func writeResult(w http.ResponseWriter, res schema.RefreshResult) {
	if res.Err != nil {
		writeError(w, http.StatusBadGateway, res.Err)
		return
	}
	stats := schema.Stats{}
	if res.Cache != nil {
		stats = res.Cache.Stats()
	}
	writeJSON(w, http.StatusOK, map[string]any{"applied": res.Applied, "stats": stats})
}

func (s *Server) complete(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}
	items := s.engine.GetCompletions(req.Text, req.offset(), req.Manual)
	if items == nil {
		items = []completion.Item{}
	}
	writeJSON(w, http.StatusOK, CompletionResponse{Loading: s.engine.Loading(), Items: items})
}

func (s *Server) hover(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.GetHover(req.Text, req.offset()))
}

func (s *Server) definition(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.GetDefinition(req.Text, req.offset()))
}

func (s *Server) references(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}
	locs := s.engine.GetReferences(req.Text, req.offset())
	if locs == nil {
		locs = []refactor.Location{}
	}
	writeJSON(w, http.StatusOK, locs)
}

func (s *Server) rename(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}
	if !refactor.ValidIdentifier(req.NewName, s.engine.Dialect()) {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("%q is not a valid identifier", req.NewName))
		return
	}
	edits := s.engine.Rename(req.Text, req.offset(), req.NewName)
	if edits == nil {
		writeError(w, http.StatusUnprocessableEntity, errors.New("nothing to rename at this position"))
		return
	}
	writeJSON(w, http.StatusOK, edits)
}

func (s *Server) validate(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}
	diags := s.engine.ValidateSQL(req.Text)
	if diags == nil {
		diags = []diagnostic.Diagnostic{}
	}
	writeJSON(w, http.StatusOK, diags)
}

func (s *Server) signature(w http.ResponseWriter, r *http.Request) {
	req, ok := decode(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.engine.GetSignatureHelp(req.Text, req.offset()))
}

// stream sends the current schema state, then one event per apply, until
// the client goes away.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	ch := s.events.subscribe()
	defer s.events.unsubscribe(ch)

	send := func(ev SchemaEvent) bool {
		data, err := json.Marshal(ev)
		if err != nil {
			return false
		}
		if _, err := fmt.Fprintf(w, "event: schema\ndata: %s\n\n", data); err != nil {
			return false
		}
		return rc.Flush() == nil
	}

	if !send(s.schemaEvent()) {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-ch:
			if !ok || !send(ev) {
				return
			}
		}
	}
}

func decode(w http.ResponseWriter, r *http.Request) (Request, bool) {
	var req Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return req, false
	}
	return req, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

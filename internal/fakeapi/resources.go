package fakeapi

import (
	"fmt"
	"maps"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/gorilla/mux"

	"github.com/dealerdesk/dealerdesk.go/pkg/models"
)

// Resource configures a collection served by the fake API.
type Resource struct {
	// Path is the resource path below the API pattern, e.g. "vehicles" or "companies/internal".
	Path string
	Kind models.IdentifierKind
	// LabelField is the record field used as the label of its choice.
	LabelField string
}

type resource struct {
	Resource

	mu      sync.Mutex
	order   []string
	records map[string]map[string]any
	nextID  int64
}

// AddResource registers a collection and its routes.
func (s *Server) AddResource(cfg Resource) {
	cfg.Path = strings.Trim(cfg.Path, "/")
	if cfg.LabelField == "" {
		cfg.LabelField = "name"
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resources[cfg.Path] = &resource{Resource: cfg, records: make(map[string]map[string]any)}
	s.router = s.buildRouter()
}

// Seed stores records as given, without validation, so that tests can plant malformed ones.
// Records without an identifier get one. It returns the identifiers in order.
func (s *Server) Seed(path string, records ...map[string]any) []string {
	res := s.resource(path)
	res.mu.Lock()
	defer res.mu.Unlock()
	ids := make([]string, 0, len(records))
	for _, rec := range records {
		rec = maps.Clone(rec)
		key, ok := res.keyOf(rec)
		if !ok {
			key = res.assign(rec)
		}
		if _, exists := res.records[key]; !exists {
			res.order = append(res.order, key)
		}
		res.records[key] = rec
		ids = append(ids, key)
	}
	return ids
}

// Record returns a copy of a stored record.
func (s *Server) Record(path, id string) (map[string]any, bool) {
	res := s.resource(path)
	res.mu.Lock()
	defer res.mu.Unlock()
	rec, ok := res.records[id]
	return maps.Clone(rec), ok
}

// Len is the number of records stored for path.
func (s *Server) Len(path string) int {
	res := s.resource(path)
	res.mu.Lock()
	defer res.mu.Unlock()
	return len(res.order)
}

func (s *Server) resource(path string) *resource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.resources[strings.Trim(path, "/")]
	if !ok {
		panic(fmt.Sprintf("fakeapi: resource %q is not registered", path))
	}
	return res
}

func (res *resource) field() string {
	return res.Kind.Field()
}

func (res *resource) keyOf(rec map[string]any) (string, bool) {
	v, ok := rec[res.field()]
	if !ok || v == nil {
		return "", false
	}
	return fmt.Sprint(v), true
}

// assign gives rec a new identifier. Callers hold res.mu.
func (res *resource) assign(rec map[string]any) string {
	if res.Kind == models.KindUUID {
		id := uuid.Must(uuid.NewV4()).String()
		rec[res.field()] = id
		return id
	}
	for {
		res.nextID++
		key := strconv.FormatInt(res.nextID, 10)
		if _, taken := res.records[key]; !taken {
			rec[res.field()] = res.nextID
			return key
		}
	}
}

func (res *resource) list() []map[string]any {
	out := make([]map[string]any, 0, len(res.order))
	for _, key := range res.order {
		out = append(out, res.records[key])
	}
	return out
}

func (res *resource) handleAll(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		res.mu.Lock()
		out := res.list()
		res.mu.Unlock()
		s.writeJSON(w, http.StatusOK, out)
	}
}

func (res *resource) handleChoices(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		res.mu.Lock()
		defer res.mu.Unlock()
		out := make([]map[string]any, 0, len(res.order))
		for _, rec := range res.list() {
			choice := map[string]any{"value": rec[res.field()]}
			if label, ok := rec[res.LabelField]; ok {
				choice["label"] = label
			}
			out = append(out, choice)
		}
		s.writeJSON(w, http.StatusOK, out)
	}
}

// handlePage serves ?page=N&page_size=M, pages numbered from 1.
func (res *resource) handlePage(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, err := strconv.Atoi(q.Get("page"))
		if err != nil || page < 1 {
			page = 1
		}
		size, err := strconv.Atoi(q.Get("page_size"))
		if err != nil || size < 1 {
			size = 10
		}

		res.mu.Lock()
		all := res.list()
		res.mu.Unlock()

		start := min((page-1)*size, len(all))
		end := min(start+size, len(all))
		link := func(n int) any {
			if n < 1 || (n-1)*size >= len(all) {
				return nil
			}
			u := *r.URL
			u.Scheme, u.Host = "http", r.Host
			v := u.Query()
			v.Set("page", strconv.Itoa(n))
			v.Set("page_size", strconv.Itoa(size))
			u.RawQuery = v.Encode()
			return u.String()
		}
		s.writeJSON(w, http.StatusOK, map[string]any{
			"count":    len(all),
			"next":     link(page + 1),
			"previous": link(page - 1),
			"results":  all[start:end],
		})
	}
}

func (res *resource) handleCreate(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec, err := s.readRecord(r)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
			return
		}
		if _, ok := rec[res.field()]; ok {
			s.writeJSON(w, http.StatusBadRequest, map[string]string{res.field(): "This field is read only."})
			return
		}
		now := time.Now().UTC().Format(time.RFC3339)
		rec["created_at"], rec["updated_at"] = now, now

		res.mu.Lock()
		key := res.assign(rec)
		res.order = append(res.order, key)
		res.records[key] = rec
		res.mu.Unlock()

		s.writeJSON(w, http.StatusCreated, rec)
	}
}

func (res *resource) handleItem(s *Server) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := mux.Vars(r)["id"]

		res.mu.Lock()
		rec, ok := res.records[key]
		res.mu.Unlock()
		if !ok {
			s.writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Not found."})
			return
		}

		switch r.Method {
		case http.MethodGet:
			s.writeJSON(w, http.StatusOK, rec)
		case http.MethodDelete:
			res.mu.Lock()
			delete(res.records, key)
			for i, k := range res.order {
				if k == key {
					res.order = append(res.order[:i], res.order[i+1:]...)
					break
				}
			}
			res.mu.Unlock()
			w.WriteHeader(http.StatusNoContent)
		case http.MethodPut, http.MethodPatch:
			body, err := s.readRecord(r)
			if err != nil {
				s.writeJSON(w, http.StatusBadRequest, map[string]string{"detail": err.Error()})
				return
			}
			if _, ok := body[res.field()]; ok {
				s.writeJSON(w, http.StatusBadRequest, map[string]string{res.field(): "The identifier belongs in the URL."})
				return
			}
			res.mu.Lock()
			updated := map[string]any{res.field(): rec[res.field()], "created_at": rec["created_at"]}
			if r.Method == http.MethodPatch {
				updated = maps.Clone(rec)
			}
			maps.Copy(updated, body)
			updated["updated_at"] = time.Now().UTC().Format(time.RFC3339)
			res.records[key] = updated
			res.mu.Unlock()
			s.writeJSON(w, http.StatusOK, updated)
		}
	}
}

// readRecord decodes a JSON object or a multipart form. File parts are stored by file name.
func (s *Server) readRecord(r *http.Request) (map[string]any, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			return nil, err
		}
		rec := make(map[string]any)
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				rec[k] = v[0]
			}
		}
		for k, files := range r.MultipartForm.File {
			if len(files) > 0 {
				rec[k] = files[0].Filename
			}
		}
		return rec, nil
	}
	rec := make(map[string]any)
	if err := s.readJSON(r, &rec); err != nil {
		return nil, fmt.Errorf("malformed body: %w", err)
	}
	return rec, nil
}

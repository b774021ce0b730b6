package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vango-dev/reactor/pkg/reactive"
	"github.com/vango-dev/reactor/pkg/script"
)

// property is the JSON form of one key.
type property struct {
	Key      string   `json:"key"`
	Value    any      `json:"value"`
	Computed bool     `json:"computed"`
	Bindings []string `json:"bindings,omitempty"`
}

// computedInfo describes one computed property.
type computedInfo struct {
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies"`
}

// patchField is one entry of a PATCH /api/state body.
type patchField struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.session.Snapshot())
}

func (s *Server) getKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var p property
	err := s.session.Do(r.Context(), func(st *script.Store) error {
		v, err := st.Lookup(key)
		if err != nil {
			return err
		}
		p = describe(st, key, v)
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) putKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	var value any
	ok, err := decodeBody(r, &value)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, badRequest("missing value"))
		return
	}

	var p property
	err = s.session.Do(r.Context(), func(st *script.Store) error {
		if err := settle(st, st.Set(key, script.FromJSON(value))); err != nil {
			return err
		}
		p = describe(st, key, st.Peek(key))
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) patchState(w http.ResponseWriter, r *http.Request) {
	var fields []patchField
	ok, err := decodeBody(r, &fields)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeError(w, badRequest("missing patch"))
		return
	}
	patch := make(reactive.Patch, len(fields))
	for i, f := range fields {
		patch[i] = reactive.Field{Key: f.Key, Value: script.FromJSON(f.Value)}
	}
	s.mutate(w, r, func(st *script.Store) error {
		return st.Update(patch)
	})
}

func (s *Server) reset(w http.ResponseWriter, r *http.Request) {
	var initial map[string]any
	ok, err := decodeBody(r, &initial)
	if err != nil {
		writeError(w, err)
		return
	}
	s.mutate(w, r, func(st *script.Store) error {
		state := st.Program().State()
		if ok {
			state = script.FromJSON(initial).(map[string]any)
		}
		return st.Reset(state)
	})
}

func (s *Server) computed(w http.ResponseWriter, r *http.Request) {
	var out []computedInfo
	_ = s.session.Do(r.Context(), func(st *script.Store) error {
		out = make([]computedInfo, 0)
		for _, name := range st.ComputedNames() {
			out = append(out, computedInfo{Name: name, Dependencies: st.Dependencies(name)})
		}
		return nil
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) listActions(w http.ResponseWriter, r *http.Request) {
	var names []string
	_ = s.session.Do(r.Context(), func(st *script.Store) error {
		names = st.Program().Actions()
		return nil
	})
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) callAction(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	var args []any
	if _, err := decodeBody(r, &args); err != nil {
		writeError(w, err)
		return
	}
	for i := range args {
		args[i] = script.FromJSON(args[i])
	}

	var result any
	err := s.session.Do(r.Context(), func(st *script.Store) error {
		var err error
		result, err = st.Call(name, args...)
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": result})
}

func (s *Server) autoBind(w http.ResponseWriter, r *http.Request) {
	s.mutate(w, r, func(st *script.Store) error {
		st.AutoBind()
		return nil
	})
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	// Hold the session so no update lands halfway through rendering.
	var err error
	_ = s.session.Do(r.Context(), func(*script.Store) error {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		err = s.page.Render(w)
		return nil
	})
	if err != nil {
		s.logger.Warn("page render failed", "error", err)
	}
}

// mutate runs fn and answers with the resulting state.
func (s *Server) mutate(w http.ResponseWriter, r *http.Request, fn func(*script.Store) error) {
	var snap map[string]any
	err := s.session.Do(r.Context(), func(st *script.Store) error {
		err := settle(st, fn(st))
		snap = st.Snapshot()
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// settle joins err with the recipe and watcher failures the write caused.
func settle(st *script.Store, err error) error {
	return errors.Join(append([]error{err}, st.Drain()...)...)
}

func describe(st *script.Store, key string, v any) property {
	return property{
		Key:      key,
		Value:    v,
		Computed: st.IsComputed(key),
		Bindings: st.Bindings(key),
	}
}

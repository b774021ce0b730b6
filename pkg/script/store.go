package script

import (
	"errors"
	"fmt"

	"go.starlark.net/starlark"

	"github.com/vango-dev/reactor/pkg/reactive"
)

const storeLocal = "reactor.store"

// Store is a reactive store driven by a Program.
type Store struct {
	*reactive.Store

	prog *Program

	// errs collects recipe and watcher failures until the next Call or
	// Drain.
	errs []error
}

// NewStore builds a store from the program's state and applies its
// declarations in source order.
func (p *Program) NewStore(opts ...reactive.Option) (*Store, error) {
	s := &Store{
		Store: reactive.New(p.State(), opts...),
		prog:  p,
	}

	var errs []error
	for _, d := range p.decls {
		switch d.Kind {
		case DeclComputed:
			if err := s.Computed(d.Key, s.recipe(d.Key, d.fn)); err != nil {
				errs = append(errs, fmt.Errorf("computed %q: %w", d.Key, err))
			}
		case DeclWatch:
			s.Watch(d.Key, s.watcher(d.Key, d.fn))
		case DeclBind:
			s.Bind(d.Key, d.Selector)
		}
	}
	errs = append(errs, s.Drain()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return s, nil
}

// Program returns the program the store was built from.
func (s *Store) Program() *Program {
	return s.prog
}

// Call runs the action name with args converted to Starlark values and
// returns its result converted back to Go.
//
// Failures of recipes and watchers triggered by the action are joined to
// the returned error.
func (s *Store) Call(name string, args ...any) (any, error) {
	fn, ok := s.prog.actions[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, name)
	}

	sargs := make(starlark.Tuple, len(args))
	for i, a := range args {
		v, err := GoToStarlark(a)
		if err != nil {
			return nil, fmt.Errorf("%s: argument %d: %w", name, i, err)
		}
		sargs[i] = v
	}

	s.Drain()
	result, err := starlark.Call(s.prog.newThread("action:"+name, s), fn, sargs, nil)
	errs := append([]error{err}, s.Drain()...)
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return ToGo(result)
}

// Drain returns and clears the recipe and watcher failures collected
// since the last call.
func (s *Store) Drain() []error {
	errs := s.errs
	s.errs = nil
	return errs
}

// recipe adapts a Starlark function to a reactive.Recipe. A failing recipe
// yields nil and records its error.
func (s *Store) recipe(name string, fn starlark.Callable) reactive.Recipe {
	return func(*reactive.Store) any {
		v, err := starlark.Call(s.prog.newThread("computed:"+name, s), fn, nil, nil)
		if err != nil {
			s.record(fmt.Errorf("computed %q: %w", name, err))
			return nil
		}
		out, err := ToGo(v)
		if err != nil {
			s.record(fmt.Errorf("computed %q: %w", name, err))
			return nil
		}
		return out
	}
}

func (s *Store) watcher(key string, fn starlark.Callable) reactive.WatchFunc {
	return func(newValue, oldValue any) {
		args := make(starlark.Tuple, 2)
		for i, v := range []any{newValue, oldValue} {
			sv, err := GoToStarlark(v)
			if err != nil {
				s.record(fmt.Errorf("watch %q: %w", key, err))
				return
			}
			args[i] = sv
		}
		if _, err := starlark.Call(s.prog.newThread("watch:"+key, s), fn, args, nil); err != nil {
			s.record(fmt.Errorf("watch %q: %w", key, err))
		}
	}
}

func (s *Store) record(err error) {
	s.prog.logger.Error("script callback failed", "error", err)
	s.errs = append(s.errs, err)
}

// storeBuiltins returns get, set, update and reset. They act on the store
// bound to the calling thread.
func storeBuiltins() starlark.StringDict {
	return starlark.StringDict{
		"get":    starlark.NewBuiltin("get", builtinGet),
		"set":    starlark.NewBuiltin("set", builtinSet),
		"update": starlark.NewBuiltin("update", builtinUpdate),
		"reset":  starlark.NewBuiltin("reset", builtinReset),
	}
}

func threadStore(thread *starlark.Thread, b *starlark.Builtin) (*Store, error) {
	s, ok := thread.Local(storeLocal).(*Store)
	if !ok {
		return nil, fmt.Errorf("%s: %w", b.Name(), ErrNoStore)
	}
	return s, nil
}

func builtinGet(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var dflt starlark.Value = starlark.None
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "key", &key, "default?", &dflt); err != nil {
		return nil, err
	}
	s, err := threadStore(thread, b)
	if err != nil {
		return nil, err
	}
	v, err := s.Lookup(key)
	if errors.Is(err, reactive.ErrUnknownProperty) {
		return dflt, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return GoToStarlark(v)
}

func builtinSet(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var value starlark.Value
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "key", &key, "value", &value); err != nil {
		return nil, err
	}
	s, err := threadStore(thread, b)
	if err != nil {
		return nil, err
	}
	v, err := ToGo(value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if err := s.Set(key, v); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}

func builtinUpdate(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var fields *starlark.Dict
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "fields", &fields); err != nil {
		return nil, err
	}
	s, err := threadStore(thread, b)
	if err != nil {
		return nil, err
	}
	patch, err := patchOf(fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	if err := s.Update(patch); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}

func builtinReset(thread *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var initial *starlark.Dict
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "state?", &initial); err != nil {
		return nil, err
	}
	s, err := threadStore(thread, b)
	if err != nil {
		return nil, err
	}
	state := s.prog.State()
	if initial != nil {
		v, err := ToGo(initial)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", b.Name(), err)
		}
		state = v.(map[string]any)
	}
	if err := s.Reset(state); err != nil {
		return nil, fmt.Errorf("%s: %w", b.Name(), err)
	}
	return starlark.None, nil
}

// patchOf keeps the dict's insertion order.
func patchOf(d *starlark.Dict) (reactive.Patch, error) {
	patch := make(reactive.Patch, 0, d.Len())
	for _, item := range d.Items() {
		key, ok := item[0].(starlark.String)
		if !ok {
			return nil, fmt.Errorf("key must be string, got %s", item[0].Type())
		}
		v, err := ToGo(item[1])
		if err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
		patch = append(patch, reactive.Field{Key: string(key), Value: v})
	}
	return patch, nil
}

package script

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// StateGlobal is the global a program declares its initial state in.
const StateGlobal = "state"

// ErrUnknownAction is returned by Call for names the program does not
// define.
var ErrUnknownAction = errors.New("script: unknown action")

// ErrNoStore is returned by store builtins called while the program is
// loading.
var ErrNoStore = errors.New("script: no store outside recipes, watchers and actions")

// LoadError reports a program that could not be loaded.
type LoadError struct {
	File    string
	Message string

	// Err is the underlying read or starlark error, if any.
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", filepath.Base(e.File), e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// DeclKind identifies a declaration made while loading.
type DeclKind string

const (
	DeclComputed DeclKind = "computed"
	DeclWatch    DeclKind = "watch"
	DeclBind     DeclKind = "bind"
)

// Decl is a computed property, watcher or binding declared by a program.
type Decl struct {
	Kind DeclKind

	// Key is the computed property name, or the watched or bound key.
	Key string

	// Selector is set for bindings.
	Selector string

	fn starlark.Callable
}

// Program is a loaded .star file. A Program is immutable and may build any
// number of stores.
type Program struct {
	filename string
	state    *starlark.Dict
	decls    []Decl
	actions  map[string]*starlark.Function
	logger   *slog.Logger
}

// Option configures a Program.
type Option func(*Program)

// WithLogger sets the logger that receives print output and recipe
// errors. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Program) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// LoadFile reads and loads the program at path.
func LoadFile(path string, opts ...Option) (*Program, error) {
	src, err := os.ReadFile(path) //nolint:gosec // G304: path is chosen by the operator
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err), Err: err}
	}
	return Load(path, src, opts...)
}

// Load executes src and records its state, declarations and actions.
//
// The file may assign a dict to the global "state" and call the builtins
// computed(name, fn), watch(key, fn) and bind(key, selector) at top level.
// Every top-level function whose name does not start with "_" becomes an
// action.
func Load(filename string, src []byte, opts ...Option) (*Program, error) {
	p := &Program{
		filename: filename,
		actions:  make(map[string]*starlark.Function),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "script", "script", filepath.Base(filename))

	thread := p.newThread("load", nil)
	globals, err := starlark.ExecFileOptions(fileOptions, thread, filename, src, p.loadBuiltins())
	if err != nil {
		return nil, &LoadError{File: filename, Message: fmt.Sprintf("starlark execution error: %v", err), Err: err}
	}

	switch v := globals[StateGlobal].(type) {
	case nil:
		p.state = starlark.NewDict(0)
	case *starlark.Dict:
		p.state = v
	default:
		return nil, &LoadError{File: filename, Message: fmt.Sprintf("%s must be a dict, got %s", StateGlobal, v.Type())}
	}
	if _, err := ToGo(p.state); err != nil {
		return nil, &LoadError{File: filename, Message: fmt.Sprintf("%s: %v", StateGlobal, err)}
	}

	for name, value := range globals {
		fn, ok := value.(*starlark.Function)
		if !ok || strings.HasPrefix(name, "_") {
			continue
		}
		p.actions[name] = fn
	}
	return p, nil
}

var fileOptions = &syntax.FileOptions{
	Set:             true,
	While:           true,
	TopLevelControl: true,
	GlobalReassign:  true,
}

// Filename returns the name the program was loaded under.
func (p *Program) Filename() string {
	return p.filename
}

// State returns a fresh copy of the declared initial state.
func (p *Program) State() map[string]any {
	v, _ := ToGo(p.state)
	m, _ := v.(map[string]any)
	return m
}

// Decls returns the declarations in source order.
func (p *Program) Decls() []Decl {
	return slices.Clone(p.decls)
}

// Actions returns the action names, sorted.
func (p *Program) Actions() []string {
	names := make([]string, 0, len(p.actions))
	for name := range p.actions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// loadBuiltins returns the predeclared names available while loading.
func (p *Program) loadBuiltins() starlark.StringDict {
	globals := storeBuiltins()
	globals["computed"] = starlark.NewBuiltin("computed", p.declareComputed)
	globals["watch"] = starlark.NewBuiltin("watch", p.declareWatch)
	globals["bind"] = starlark.NewBuiltin("bind", p.declareBind)
	return globals
}

func (p *Program) declareComputed(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var name string
	var fn starlark.Callable
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "name", &name, "fn", &fn); err != nil {
		return nil, err
	}
	p.decls = append(p.decls, Decl{Kind: DeclComputed, Key: name, fn: fn})
	return starlark.None, nil
}

func (p *Program) declareWatch(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key string
	var fn starlark.Callable
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "key", &key, "fn", &fn); err != nil {
		return nil, err
	}
	p.decls = append(p.decls, Decl{Kind: DeclWatch, Key: key, fn: fn})
	return starlark.None, nil
}

func (p *Program) declareBind(_ *starlark.Thread, b *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
	var key, selector string
	if err := starlark.UnpackArgs(b.Name(), args, kwargs, "key", &key, "selector", &selector); err != nil {
		return nil, err
	}
	p.decls = append(p.decls, Decl{Kind: DeclBind, Key: key, Selector: selector})
	return starlark.None, nil
}

// newThread creates a thread bound to store. Print output goes to the
// program logger.
func (p *Program) newThread(name string, store *Store) *starlark.Thread {
	thread := &starlark.Thread{
		Name: name,
		Print: func(_ *starlark.Thread, msg string) {
			p.logger.Info(msg, "thread", name)
		},
	}
	if store != nil {
		thread.SetLocal(storeLocal, store)
	}
	return thread
}

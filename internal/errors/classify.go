package errors

import (
	stderrors "errors"
	"io/fs"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"
	"go.starlark.net/syntax"

	"github.com/vango-dev/reactor/internal/config"
	"github.com/vango-dev/reactor/pkg/reactive"
	"github.com/vango-dev/reactor/pkg/script"
)

// sentinels map package errors to codes. The first match wins.
var sentinels = []struct {
	err  error
	code string
}{
	{reactive.ErrReservedKey, "R001"},
	{reactive.ErrInvalidKey, "R002"},
	{reactive.ErrCyclicDependency, "R004"},
	{reactive.ErrNestedComputation, "R005"},
	{reactive.ErrNilRecipe, "R006"},
	{reactive.ErrUnknownProperty, "R003"},
	{script.ErrUnknownAction, "S004"},
	{script.ErrNoStore, "S005"},
	{config.ErrFile, "C001"},
	{config.ErrInvalid, "C002"},
}

// FromError wraps err in a ReactorError with the given code. An err that
// already is one is returned as is.
func FromError(err error, code string) *ReactorError {
	if err == nil {
		return nil
	}
	var re *ReactorError
	if stderrors.As(err, &re) {
		return re
	}
	return New(code).Wrap(err)
}

// Classify picks the registered code that best describes err and attaches
// the script position it came from, when there is one.
func Classify(err error) *ReactorError {
	if err == nil {
		return nil
	}
	var re *ReactorError
	if stderrors.As(err, &re) {
		return re
	}

	var le *script.LoadError
	if stderrors.As(err, &le) {
		return locate(New(loadCode(le)).Wrap(err), err)
	}
	for _, s := range sentinels {
		if stderrors.Is(err, s.err) {
			return locate(New(s.code).Wrap(err), err)
		}
	}
	var ee *starlark.EvalError
	if stderrors.As(err, &ee) {
		return locate(New("S007").Wrap(err), err)
	}
	return locate(New("X001").Wrap(err), err)
}

func loadCode(le *script.LoadError) string {
	var (
		se syntax.Error
		rl resolve.ErrorList
	)
	switch {
	case le.Err == nil:
		return "S006"
	case stderrors.Is(le.Err, fs.ErrNotExist), stderrors.Is(le.Err, fs.ErrPermission):
		return "S003"
	case stderrors.As(le.Err, &se), stderrors.As(le.Err, &rl):
		return "S001"
	}
	for _, s := range sentinels {
		if stderrors.Is(le.Err, s.err) {
			return s.code
		}
	}
	return "S002"
}

// locate sets e's location from the innermost script position in err.
func locate(e *ReactorError, err error) *ReactorError {
	var (
		se syntax.Error
		rl resolve.ErrorList
		ee *starlark.EvalError
	)
	var pos syntax.Position
	switch {
	case stderrors.As(err, &se):
		pos = se.Pos
	case stderrors.As(err, &rl) && len(rl) > 0:
		pos = rl[0].Pos
	case stderrors.As(err, &ee):
		for i := len(ee.CallStack) - 1; i >= 0; i-- {
			if p := ee.CallStack[i].Pos; inSource(p) {
				pos = p
				break
			}
		}
	}
	if !inSource(pos) {
		return e
	}
	return e.WithLocation(pos.Filename(), int(pos.Line), int(pos.Col))
}

func inSource(p syntax.Position) bool {
	return p.IsValid() && p.Line > 0 && p.Filename() != "<builtin>"
}

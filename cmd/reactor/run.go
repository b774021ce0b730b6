package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/pkg/reactive"
	"github.com/vango-dev/reactor/pkg/script"
)

type runOptions struct {
	sets   []string
	calls  []string
	output string
}

func runCmd(a *app) *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "run <script.star>",
		Short: "Build a script's store, apply writes and actions, print the state",
		Long: `Build a script's store, apply writes and actions, and print the
resulting state.

Each --set writes one key; the value is JSON. Writes are applied in the
order given, then each --call runs an action. Action arguments follow the
name as a JSON array.

Examples:
  reactor run cart.star
  reactor run cart.star --set taxRate=0.2 --output json
  reactor run cart.star --call 'add_item=["pear", 2.5, 2]' --call clear`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			return checkOutput(opts.output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := runScript(a, args[0], opts)
			if err != nil {
				return err
			}
			return renderState(cmd.OutOrStdout(), opts.output, st)
		},
	}

	cmd.Flags().StringArrayVar(&opts.sets, "set", nil, "write key=json before printing (repeatable)")
	cmd.Flags().StringArrayVar(&opts.calls, "call", nil, "run action name or name=[json args] (repeatable)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", outputTable, "output format (table|json|yaml)")
	_ = cmd.RegisterFlagCompletionFunc("output", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return outputFormats, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func runScript(a *app, path string, opts *runOptions) (*script.Store, error) {
	prog, err := script.LoadFile(path, script.WithLogger(a.log.Logger))
	if err != nil {
		return nil, err
	}
	st, err := prog.NewStore(reactive.WithLogger(a.log.With("component", "reactive")))
	if err != nil {
		return nil, err
	}

	for _, set := range opts.sets {
		key, raw, ok := strings.Cut(set, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want key=json", set)
		}
		value, err := script.DecodeJSON([]byte(raw))
		if err != nil {
			return nil, fmt.Errorf("--set %s: %w", key, err)
		}
		if err := errors.Join(append([]error{st.Set(key, value)}, st.Drain()...)...); err != nil {
			return nil, err
		}
	}

	for _, call := range opts.calls {
		name, args, err := parseCall(call)
		if err != nil {
			return nil, err
		}
		result, err := st.Call(name, args...)
		if err != nil {
			return nil, err
		}
		a.log.Info("action finished", "action", name, "result", result)
	}
	return st, nil
}

// parseCall splits "name" or "name=[args]".
func parseCall(call string) (string, []any, error) {
	name, raw, ok := strings.Cut(call, "=")
	if !ok {
		return call, nil, nil
	}
	v, err := script.DecodeJSON([]byte(raw))
	if err != nil {
		return "", nil, fmt.Errorf("--call %s: %w", name, err)
	}
	args, ok := v.([]any)
	if !ok {
		return "", nil, fmt.Errorf("--call %s: arguments must be a JSON array", name)
	}
	return name, args, nil
}

func renderState(w io.Writer, format string, st *script.Store) error {
	return render(w, format, st.Snapshot(), func(w io.Writer) {
		t := newTable(w, "Key", "Value", "Kind")
		for _, key := range st.Keys() {
			kind := "plain"
			if st.IsComputed(key) {
				kind = "computed"
			}
			t.AppendRow([]any{key, formatValue(st.Peek(key)), kind})
		}
		t.Render()
	})
}

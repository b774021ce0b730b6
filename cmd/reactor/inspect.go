package main

import (
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/pkg/reactive"
	"github.com/vango-dev/reactor/pkg/script"
)

type computedDecl struct {
	Name         string   `json:"name" yaml:"name"`
	Dependencies []string `json:"dependencies" yaml:"dependencies"`
}

type bindDecl struct {
	Key      string `json:"key" yaml:"key"`
	Selector string `json:"selector" yaml:"selector"`
}

// inspection is what a script declares.
type inspection struct {
	File     string         `json:"file" yaml:"file"`
	State    map[string]any `json:"state" yaml:"state"`
	Computed []computedDecl `json:"computed" yaml:"computed"`
	Watches  []string       `json:"watches" yaml:"watches"`
	Bindings []bindDecl     `json:"bindings" yaml:"bindings"`
	Actions  []string       `json:"actions" yaml:"actions"`
}

func inspectCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "inspect <script.star>",
		Short: "List what a script declares",
		Long: `List the initial state keys, computed properties with the keys they
read, watchers, bindings and actions a script declares.

Dependencies are found by building the store once, so they are the keys
each recipe read for the initial state.`,
		Args: cobra.ExactArgs(1),
		PreRunE: func(*cobra.Command, []string) error {
			return checkOutput(output)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := inspectScript(a, args[0])
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), output, in, in.table)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", outputTable, "output format (table|json|yaml)")
	return cmd
}

func inspectScript(a *app, path string) (*inspection, error) {
	prog, err := script.LoadFile(path, script.WithLogger(a.log.Logger))
	if err != nil {
		return nil, err
	}
	st, err := prog.NewStore(reactive.WithLogger(a.log.With("component", "reactive")))
	if err != nil {
		return nil, err
	}

	in := &inspection{
		File:     prog.Filename(),
		State:    prog.State(),
		Computed: []computedDecl{},
		Watches:  []string{},
		Bindings: []bindDecl{},
		Actions:  prog.Actions(),
	}
	for _, d := range prog.Decls() {
		switch d.Kind {
		case script.DeclComputed:
			in.Computed = append(in.Computed, computedDecl{Name: d.Key, Dependencies: st.Dependencies(d.Key)})
		case script.DeclWatch:
			in.Watches = append(in.Watches, d.Key)
		case script.DeclBind:
			in.Bindings = append(in.Bindings, bindDecl{Key: d.Key, Selector: d.Selector})
		}
	}
	if in.Actions == nil {
		in.Actions = []string{}
	}
	return in, nil
}

func (in *inspection) table(w io.Writer) {
	t := newTable(w, "Kind", "Key", "Detail")
	for _, key := range slices.Sorted(maps.Keys(in.State)) {
		t.AppendRow([]any{"state", key, formatValue(in.State[key])})
	}
	for _, c := range in.Computed {
		t.AppendRow([]any{"computed", c.Name, strings.Join(c.Dependencies, ", ")})
	}
	for _, key := range in.Watches {
		t.AppendRow([]any{"watch", key, ""})
	}
	for _, b := range in.Bindings {
		t.AppendRow([]any{"bind", b.Key, b.Selector})
	}
	for _, name := range in.Actions {
		t.AppendRow([]any{"action", name, ""})
	}
	t.Render()
}

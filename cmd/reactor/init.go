package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactor/internal/config"
	"github.com/vango-dev/reactor/internal/errors"
	"github.com/vango-dev/reactor/internal/templates"
)

func initCmd() *cobra.Command {
	var (
		template string
		addr     string
		page     bool
		force    bool
	)

	cmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Create a starter project",
		Long: `Create a starter project with a script, a reactor.yaml and, unless
--page=false, an HTML page bound to the script's keys.

Templates:
  cart      Shopping cart with subtotal, tax and total (default)
  counter   One counter with a derived value and two actions

Examples:
  reactor init shop
  reactor init clicks --template counter --page=false`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := templates.Get(template)
			if err != nil {
				return err
			}
			dir := args[0]
			if !force && !isEmptyDir(dir) {
				return errors.New("X003").WithDetail("Directory '" + dir + "' already has files")
			}

			files, err := tmpl.Create(dir, templates.Config{
				ProjectName: filepath.Base(dir),
				Addr:        addr,
				WithPage:    page,
			})
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(w, "Created %s from the %q template:\n", dir, tmpl.Name)
			for _, f := range files {
				_, _ = fmt.Fprintf(w, "  %s\n", filepath.Join(dir, f))
			}
			_, _ = fmt.Fprintf(w, "\nNext:\n  cd %s && reactor serve\n", dir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&template, "template", "t", "cart", "project template ("+strings.Join(templates.List(), ", ")+")")
	cmd.Flags().StringVar(&addr, "addr", config.DefaultAddr, "listen address written to reactor.yaml")
	cmd.Flags().BoolVar(&page, "page", true, "include an HTML page")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "write into a directory that already has files")

	return cmd
}

// isEmptyDir reports whether dir is missing or has no entries.
func isEmptyDir(dir string) bool {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return true
	}
	return err == nil && len(entries) == 0
}

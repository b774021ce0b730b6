package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"
)

func versionCmd() *cobra.Command {
	var short bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print version, commit, and build information for reactor.`,
		Run: func(cmd *cobra.Command, _ []string) {
			w := cmd.OutOrStdout()
			if short {
				_, _ = fmt.Fprintln(w, version)
				return
			}
			_, _ = fmt.Fprintf(w, "Version:    %s\n", version)
			_, _ = fmt.Fprintf(w, "Commit:     %s\n", commit)
			_, _ = fmt.Fprintf(w, "Built:      %s\n", date)
			_, _ = fmt.Fprintf(w, "Go version: %s\n", runtime.Version())
			_, _ = fmt.Fprintf(w, "OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}

	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")

	return cmd
}

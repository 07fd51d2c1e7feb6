package cli

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/petasbytes/autotriage/internal/availability"
	"github.com/petasbytes/autotriage/tools"
)

func newToolsCmd(a *app) *cobra.Command {
	var catalog bool
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "Show which investigation tools are available in this workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			reg, err := tools.NewDefaultRegistry()
			if err != nil {
				return err
			}
			inputDir, _ := filepath.Abs(a.cfg.Paths.InputDir)
			checker := availability.New(a.cfg.Paths.WorkspaceRoot, inputDir)
			defs := reg.Definitions()
			available := checker.Filter(defs)
			out := cmd.OutOrStdout()

			if catalog {
				fmt.Fprint(out, tools.FormatForPrompt(available))
				return nil
			}

			fmt.Fprintf(out, "Available tools (%d/%d):\n", len(available), len(defs))
			for _, d := range available {
				fmt.Fprintf(out, "  %s %s\n", color.GreenString("+"), d.Name)
			}
			missing := checker.Unavailable(defs)
			if len(missing) == 0 {
				return nil
			}
			names := make([]string, 0, len(missing))
			for name := range missing {
				names = append(names, name)
			}
			sort.Strings(names)
			fmt.Fprintln(out, "Unavailable:")
			for _, name := range names {
				fmt.Fprintf(out, "  %s %s: %s\n", color.RedString("-"), name, strings.Join(missing[name], "; "))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&catalog, "catalog", false, "print the catalog exactly as the model sees it")
	return cmd
}

package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/recera/rocal/cmd/rocal/internal/tui"
	"github.com/recera/rocal/pkg/ui"
)

func newCheckCommand() *cobra.Command {
	var tree, program bool

	cmd := &cobra.Command{
		Use:   "check [files...]",
		Short: "Compile templates without rendering",
		Long: `Compiles every template, or the given files, and reports the first syntax
error in each. --tree prints the document tree, --program the compiled
instruction listing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.OutOrStdout(), args, tree, program)
		},
	}

	cmd.Flags().BoolVar(&tree, "tree", false, "Print the document tree of each template")
	cmd.Flags().BoolVar(&program, "program", false, "Print the instruction program of each template")

	return cmd
}

func runCheck(out io.Writer, args []string, tree, program bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	b, _, err := newBuilder(cfg, false)
	if err != nil {
		return err
	}

	files, err := resolveFiles(b, args)
	if err != nil {
		return err
	}

	failed := 0
	for _, file := range files {
		tmpl, _, err := b.Compile(file)
		if err != nil {
			failed++
			fmt.Fprintln(out, tui.Error(err.Error()))
			continue
		}

		if !quiet {
			fmt.Fprintln(out, tui.Success(b.Name(file)))
		}
		if tree {
			fmt.Fprint(out, ui.Dump(tmpl.Tree()))
		}
		if program {
			fmt.Fprint(out, tmpl.Program().String())
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d templates have errors", failed, len(files))
	}
	return nil
}

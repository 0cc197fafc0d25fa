package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/recera/rocal/cmd/rocal/internal/tui"
)

func newNewCommand() *cobra.Command {
	var starter string
	var noInteractive bool

	starterNames := make([]string, len(tui.Starters))
	for i, s := range tui.Starters {
		starterNames[i] = s.Name
	}

	cmd := &cobra.Command{
		Use:   "new [name]",
		Short: "Create a template from a starter",
		Long: `Creates a template and its data file in the templates directory. Without
--no-interactive a wizard asks for the name and starter.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			return runNew(cmd.OutOrStdout(), name, starter, noInteractive)
		},
	}

	cmd.Flags().StringVarP(&starter, "starter", "s", "blank", "Starter: "+strings.Join(starterNames, ", "))
	cmd.Flags().BoolVar(&noInteractive, "no-interactive", false, "Skip the interactive wizard")

	return cmd
}

func runNew(out io.Writer, name, starter string, noInteractive bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	config := tui.TemplateConfig{
		Name:      name,
		Starter:   starter,
		Dir:       cfg.TemplatesDir(),
		Extension: cfg.Extension,
	}

	var created []string
	if noInteractive || !tui.IsTerminal() {
		if name == "" {
			return fmt.Errorf("a template name is required with --no-interactive")
		}
		created, err = tui.CreateTemplate(config)
	} else {
		created, err = tui.RunNewTUI(name, config)
	}
	if errors.Is(err, tui.ErrCancelled) {
		fmt.Fprintln(out, tui.Warning(err.Error()))
		return nil
	}
	if err != nil {
		return err
	}

	for _, path := range created {
		fmt.Fprintln(out, tui.Success("Created "+path))
	}
	return nil
}

package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/recera/rocal/cmd/rocal/internal/build"
	"github.com/recera/rocal/pkg/ui"
)

func newRenderCommand() *cobra.Command {
	var dataFile string
	var sets []string

	cmd := &cobra.Command{
		Use:   "render <file>",
		Short: "Render one template to stdout",
		Long: `Renders a template against its data and prints the result. --data adds a
data file on top of the project and sibling data; --set key=value sets
single values last. Values are parsed as YAML scalars.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRender(cmd.OutOrStdout(), args[0], dataFile, sets)
		},
	}

	cmd.Flags().StringVarP(&dataFile, "data", "d", "", "Additional YAML or JSON data file")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set a context value (key=value), may be repeated")

	return cmd
}

func runRender(out io.Writer, file, dataFile string, sets []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	b, _, err := newBuilder(cfg, false)
	if err != nil {
		return err
	}

	tmpl, _, err := b.Compile(file)
	if err != nil {
		return err
	}

	ctx, _, err := b.Context(file)
	if err != nil {
		return err
	}

	if dataFile != "" {
		extra, err := build.LoadData(dataFile)
		if err != nil {
			return fmt.Errorf("failed to load data: %w", err)
		}
		ctx = build.Merge(ctx, extra)
	}

	overrides, err := parseSets(sets)
	if err != nil {
		return err
	}
	ctx = build.Merge(ctx, overrides)

	if err := tmpl.Execute(out, ctx); err != nil {
		return fmt.Errorf("%s: %w", b.Name(file), err)
	}
	fmt.Fprintln(out)
	return nil
}

// parseSets turns key=value pairs into a context. "n=3" gives an int,
// "ok=true" a bool and "s=hi" a string.
func parseSets(sets []string) (ui.Context, error) {
	ctx := ui.Context{}
	for _, set := range sets {
		key, raw, ok := strings.Cut(set, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q, want key=value", set)
		}

		var value any
		if err := yaml.Unmarshal([]byte(raw), &value); err != nil || value == nil {
			value = raw
		}
		ctx[key] = value
	}
	return ctx, nil
}

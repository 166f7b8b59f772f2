package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"octocart/internal/octo"
)

func newOptionsCommand(ctx *commandContext) *cobra.Command {
	var (
		format  string
		diffRC  string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "options <cart.gif>",
		Short: "Print the runtime options stored in a cartridge",
		Long: "Print the cartridge options as JSON, TOML, or a C-Octo .octo.rc fragment.\n" +
			"The default format comes from output.options_format.\n" +
			"With --diff-rc, compare the cartridge against an existing .octo.rc instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			var selected octo.Format
			if strings.TrimSpace(diffRC) == "" {
				name := strings.TrimSpace(format)
				if name == "" {
					name = cfg.Output.OptionsFormat
				}
				selected, err = octo.ParseFormat(name)
				if err != nil {
					return err
				}
			}
			result, err := ctx.load(cmd, args[0], loadOptions{noCache: noCache, parse: true})
			if err != nil {
				return err
			}
			if selected == "" {
				return printOptionsDiff(cmd, diffRC, result.Cart.Options)
			}
			return result.Cart.Options.Render(cmd.OutOrStdout(), selected)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format: json, toml or octorc")
	cmd.Flags().StringVar(&diffRC, "diff-rc", "", "Compare against this .octo.rc file")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the decode cache")
	return cmd
}

func printOptionsDiff(cmd *cobra.Command, path string, cart octo.Options) error {
	file, err := os.Open(strings.TrimSpace(path))
	if err != nil {
		return fmt.Errorf("open octo.rc: %w", err)
	}
	defer file.Close()

	rc, err := octo.ParseOctoRC(file)
	if err != nil {
		return err
	}
	changes := rc.Diff(cart)
	out := cmd.OutOrStdout()
	if len(changes) == 0 {
		fmt.Fprintln(out, "octo.rc matches the cartridge options")
		return nil
	}
	rows := make([][]string, 0, len(changes))
	for _, change := range changes {
		rows = append(rows, []string{change.Key, change.From, change.To})
	}
	fmt.Fprintln(out, renderTable([]string{"Key", "octo.rc", "Cartridge"}, rows, nil))
	return nil
}

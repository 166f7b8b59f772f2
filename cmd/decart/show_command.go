package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"octocart/internal/loader"
	"octocart/internal/octo"
)

func newShowCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		noCache    bool
	)

	cmd := &cobra.Command{
		Use:   "show <cart.gif>",
		Short: "Summarize a cartridge's options and program",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := ctx.load(cmd, args[0], loadOptions{noCache: noCache, parse: true})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, result)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range showLines(result, colorize) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the decoded cartridge as JSON")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the decode cache")
	return cmd
}

func showLines(result *loader.Result, colorize bool) []string {
	var lines []string
	lines = append(lines, renderSectionHeader("Cartridge", colorize)...)
	if result.Source != "" {
		lines = append(lines, renderStatusLine("Source", statusInfo, result.Source, colorize))
	}
	lines = append(lines,
		renderStatusLine("Hash", statusInfo, result.Hash, colorize),
		renderStatusLine("Frames", statusInfo, strconv.Itoa(result.Frames), colorize),
		renderStatusLine("Cached", statusInfo, yesNo(result.FromCache), colorize),
	)

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Options", colorize)...)
	lines = append(lines, renderTable(
		[]string{"Setting", "Value"},
		optionRows(result.Cart.Options),
		[]columnAlignment{alignLeft, alignLeft},
	))

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Program", colorize)...)
	summary := summarizeProgram(result.Cart.Program)
	lines = append(lines,
		renderStatusLine("Size", statusInfo, fmt.Sprintf("%d bytes, %d lines", summary.bytes, summary.lines), colorize),
		renderStatusLine("Labels", statusInfo, strconv.Itoa(summary.labels), colorize),
	)
	if summary.first != "" {
		lines = append(lines, renderStatusLine("First line", statusInfo, summary.first, colorize))
	}
	return lines
}

func optionRows(o octo.Options) [][]string {
	title := cases.Title(language.Und)
	return [][]string{
		{"Tick rate", strconv.Itoa(o.TickRate)},
		{"Max size", strconv.Itoa(o.MaxSize)},
		{"Screen rotation", fmt.Sprintf("%d°", o.ScreenRotation)},
		{"Font style", title.String(string(o.FontStyle))},
		{"Touch input", title.String(string(o.TouchInputMode))},
		{"Background color", o.BackgroundColor.String()},
		{"Fill color", o.FillColor.String()},
		{"Fill color 2", o.FillColor2.String()},
		{"Blend color", o.BlendColor.String()},
		{"Buzz color", o.BuzzColor.String()},
		{"Quiet color", o.QuietColor.String()},
		{"Shift quirks", yesNo(o.ShiftQuirks)},
		{"Load/store quirks", yesNo(o.LoadStoreQuirks)},
		{"VF order quirks", yesNo(o.VFOrderQuirks)},
		{"Clip quirks", yesNo(o.ClipQuirks)},
		{"VBlank quirks", yesNo(o.VBlankQuirks)},
		{"Jump quirks", yesNo(o.JumpQuirks)},
		{"Logic quirks", yesNo(o.LogicQuirks)},
	}
}

type programSummary struct {
	bytes  int
	lines  int
	labels int
	first  string
}

func summarizeProgram(program string) programSummary {
	summary := programSummary{bytes: len(program)}
	if program == "" {
		return summary
	}
	for _, line := range strings.Split(strings.TrimSuffix(program, "\n"), "\n") {
		summary.lines++
		trimmed := strings.TrimSpace(line)
		if summary.first == "" && trimmed != "" {
			summary.first = trimmed
		}
		for _, token := range strings.Fields(trimmed) {
			if strings.HasPrefix(token, "#") {
				break
			}
			if token == ":" {
				summary.labels++
			}
		}
	}
	return summary
}

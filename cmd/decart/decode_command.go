package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"octocart/internal/octo"
)

type decodeOutput struct {
	Source    string     `json:"source,omitempty"`
	Hash      string     `json:"hash"`
	Declared  uint32     `json:"declared"`
	Frames    int        `json:"frames"`
	Truncated bool       `json:"truncated"`
	FromCache bool       `json:"from_cache"`
	Body      string     `json:"body"`
	Cart      *octo.Cart `json:"cart,omitempty"`
}

func newDecodeCommand(ctx *commandContext) *cobra.Command {
	var (
		jsonOutput bool
		strict     bool
		noCache    bool
		raw        bool
	)

	cmd := &cobra.Command{
		Use:   "decode <cart.gif>",
		Short: "Print the raw payload embedded in a cartridge",
		Long: "Extract the length-prefixed payload hidden in the palette of an Octocart GIF.\n" +
			"Use - to read the cartridge from stdin. When decode.parse is enabled the payload\n" +
			"must also be a valid cartridge document; --raw skips that check.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := ctx.load(cmd, args[0], loadOptions{strict: strict, noCache: noCache, raw: raw})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, decodeOutput{
					Source:    result.Source,
					Hash:      result.Hash,
					Declared:  result.Declared,
					Frames:    result.Frames,
					Truncated: result.Truncated,
					FromCache: result.FromCache,
					Body:      result.Text(),
					Cart:      result.Cart,
				})
			}
			_, err = io.WriteString(cmd.OutOrStdout(), result.Text())
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit the body and decode metadata as JSON")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when the cartridge holds fewer bytes than declared")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the decode cache")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the payload without parsing it as a cartridge document")
	return cmd
}

func newProgramCommand(ctx *commandContext) *cobra.Command {
	var noCache bool

	cmd := &cobra.Command{
		Use:   "program <cart.gif>",
		Short: "Print the Octo program stored in a cartridge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result, err := ctx.load(cmd, args[0], loadOptions{noCache: noCache, parse: true})
			if err != nil {
				return err
			}
			program := result.Cart.Program
			if !strings.HasSuffix(program, "\n") {
				program += "\n"
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), program)
			return err
		},
	}

	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the decode cache")
	return cmd
}

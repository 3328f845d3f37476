package main

import (
	"bytes"
	"encoding/json"

	"github.com/spf13/cobra"
)

func (a *app) saveCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "save <template>",
		Short: "Compile a template and write its serialized JSON form",
		Long: `Compile a template and write the serialized form, which loads back with
any command by giving it a .json extension.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			raw, err := tmpl.MarshalJSON()
			if err != nil {
				return err
			}
			var buf bytes.Buffer
			if err := json.Indent(&buf, raw, "", "  "); err != nil {
				return err
			}
			buf.WriteByte('\n')
			return writeOutput(cmd.OutOrStdout(), output, buf.String())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

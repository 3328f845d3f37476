package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-tmplschema/internal/structured"
)

func (a *app) schemaCmd() *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "schema <template>",
		Short: "Print the parameters JSON-Schema of a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tmpl, err := a.load(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			raw, err := json.Marshal(tmpl.ParametersSchema())
			if err != nil {
				return err
			}
			switch format {
			case "json":
				raw, err = structured.ReformatJSON(raw)
			case "yaml":
				raw, err = structured.ReformatYAML(raw)
			default:
				return fmt.Errorf("unknown format %q (json, yaml)", format)
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "output format (json, yaml)")
	return cmd
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-tmplschema/pkg/prompt"
)

func (a *app) promptCmd() *cobra.Command {
	var (
		paramsFile  string
		sets        []string
		printParams bool
		output      string
	)
	cmd := &cobra.Command{
		Use:   "prompt <template>",
		Short: "Ask for each template parameter interactively, then render",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tmpl, err := a.load(ctx, args[0])
			if err != nil {
				return err
			}
			defaults, err := loadParams(paramsFile, sets)
			if err != nil {
				return err
			}

			collector := prompt.New(prompt.WithDriver(a.promptDriver()), prompt.WithLogger(a.logger))
			params, err := collector.Collect(ctx, tmpl.ParametersSchema(), defaults)
			if err != nil {
				return err
			}

			if printParams {
				raw, err := json.MarshalIndent(params, "", "  ")
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
				return err
			}
			out, err := tmpl.Render(params)
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, out)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&paramsFile, "params", "p", "", "JSON or YAML file with default answers")
	flags.StringArrayVar(&sets, "set", nil, "default answer as key=value (repeatable)")
	flags.BoolVar(&printParams, "print-params", false, "print the collected parameters instead of rendering")
	flags.StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

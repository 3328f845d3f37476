package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-tmplschema"
)

func (a *app) validateCmd() *cobra.Command {
	var (
		paramsFile string
		sets       []string
	)
	cmd := &cobra.Command{
		Use:   "validate <template>...",
		Short: "Check template syntax, and optionally parameters against the schema",
		Long: `Validate each template text. With --params or --set, also compile the
templates and check the parameters against their schema.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			checkParams := paramsFile != "" || len(sets) > 0
			var params map[string]any
			if checkParams {
				var err error
				if params, err = loadParams(paramsFile, sets); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, file := range args {
				data, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				if err := tmplschema.Validate(string(data)); err != nil {
					failed++
					fmt.Fprintf(out, "FAIL %s\n  %v\n", file, err)
					continue
				}
				if checkParams {
					tmpl, err := a.load(cmd.Context(), file)
					if err != nil {
						failed++
						fmt.Fprintf(out, "FAIL %s\n  %v\n", file, err)
						continue
					}
					if res := tmpl.Validate(params); !res.Valid {
						failed++
						fmt.Fprintf(out, "FAIL %s\n", file)
						for _, issue := range res.Issues {
							fmt.Fprintf(out, "  %s\n", issue.Message)
						}
						continue
					}
				}
				fmt.Fprintf(out, "ok   %s\n", file)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d templates failed validation", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&paramsFile, "params", "p", "", "JSON or YAML parameter file")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "parameter override as key=value (repeatable)")
	return cmd
}

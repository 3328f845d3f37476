package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

func (a *app) renderCmd() *cobra.Command {
	var (
		paramsFile string
		sets       []string
		fetch      bool
		forward    bool
		output     string
	)
	cmd := &cobra.Command{
		Use:   "render <template>",
		Short: "Render a template with parameters",
		Long: `Render a template. Parameters come from --params (JSON or YAML) and
--set key=value overrides.

  --fetch    resolve url definitions over HTTP before rendering
  --forward  render with --fetch and POST the result to httpForward.url`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			tmpl, err := a.load(ctx, args[0])
			if err != nil {
				return err
			}
			params, err := loadParams(paramsFile, sets)
			if err != nil {
				return err
			}

			if forward {
				res, err := tmpl.ForwardHTTP(ctx, params)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintf(cmd.OutOrStdout(), "%d\n%s\n", res.StatusCode, res.Body)
				return err
			}

			var out string
			if fetch {
				out, err = tmpl.FetchAndRender(ctx, params)
			} else {
				out, err = tmpl.Render(params)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, out)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&paramsFile, "params", "p", "", "JSON or YAML parameter file")
	flags.StringArrayVar(&sets, "set", nil, "parameter override as key=value (repeatable)")
	flags.BoolVar(&fetch, "fetch", false, "fetch url definitions before rendering")
	flags.BoolVar(&forward, "forward", false, "POST the rendered output to httpForward.url")
	flags.StringVarP(&output, "output", "o", "", "output file (stdout if empty)")
	return cmd
}

func writeOutput(stdout io.Writer, file, text string) error {
	if file == "" {
		_, err := io.WriteString(stdout, text)
		return err
	}
	if err := os.WriteFile(file, []byte(text), 0o644); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

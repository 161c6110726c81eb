package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var version = "dev"

func main() {
	if err := newRootCmd(viper.New()).Execute(); err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	red := color.New(color.FgRed).SprintFunc()
	fmt.Fprintf(os.Stderr, "%s\n", red(err.Error()))
	os.Exit(1)
}

func newRootCmd(v *viper.Viper) *cobra.Command {
	root := &cobra.Command{
		Use:           "starcost",
		Short:         "Estimate the cost of inlining Starlark functions at their call sites",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig(cmd, v)
		},
	}
	root.PersistentFlags().String("config", "", "config file (default .starcost.yaml)")
	root.PersistentFlags().String("log-level", "warn", "log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("no-color", false, "disable colored output")

	root.AddCommand(newReportCmd(v), newAnnotateCmd(v))
	return root
}

func newReportCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report FILE...",
		Short: "Print the cost model of every function and the cost of every call site",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var analyses []*analysis
			var errs *multierror.Error
			for _, path := range args {
				_, a, err := analyzePath(path)
				if err != nil {
					log.Error().Err(err).Str("file", path).Msg("skipping file")
					errs = multierror.Append(errs, err)
					continue
				}
				analyses = append(analyses, a)
			}
			out := cmd.OutOrStdout()
			colored := !v.GetBool("no-color") && isTerminal(out)
			if err := writeReport(out, analyses, v.GetString("format"), colored); err != nil {
				return err
			}
			return errs.ErrorOrNil()
		},
	}
	cmd.Flags().StringP("format", "f", "text", "output format (text, yaml, json)")
	return cmd
}

func newAnnotateCmd(v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate FILE",
		Short: "Reformat a file with its cost models written above each function",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, a, err := analyzePath(path)
			if err != nil {
				return err
			}
			out := annotate(f, a)
			if !v.GetBool("write") {
				_, err := cmd.OutOrStdout().Write(out)
				return err
			}
			info, err := os.Stat(path)
			if err != nil {
				return err
			}
			if err := os.WriteFile(path, out, info.Mode().Perm()); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}
			log.Info().Str("file", path).Int("functions", len(a.Functions)).Msg("annotated")
			return nil
		},
	}
	cmd.Flags().BoolP("write", "w", false, "write result to the source file instead of stdout")
	return cmd
}

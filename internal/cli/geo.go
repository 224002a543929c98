package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/geo-agent/geo-mcp-server/internal/geo"
)

func (e *env) newAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Audit a keyword and/or read a page, then propose an Article schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			if err := checkFormat(format, formatJSON, formatYAML); err != nil {
				return err
			}
			keyword, _ := cmd.Flags().GetString("keyword")
			url, _ := cmd.Flags().GetString("url")
			if keyword == "" && url == "" {
				return usageError("--keyword or --url is required")
			}

			cfg := quietConfig(loadConfig(cmd), cmd)
			a, cleanup, err := e.build(cmd.Context(), cmd, "cli", cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			analysis, err := a.Pipeline.Analyze(cmd.Context(), geo.Request{Keyword: keyword, URL: url})
			if err != nil {
				return pipelineError(err)
			}
			return writeStructured(cmd.OutOrStdout(), format, analysis)
		},
	}
	cmd.Flags().String("keyword", "", "Keyword to audit")
	cmd.Flags().String("url", "", "Page to read")
	cmd.Flags().String("format", formatJSON, "Output format: json | yaml")
	return cmd
}

func (e *env) newOptimizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Analyze a page and have the model rewrite it for AI answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			if err := checkFormat(format, formatText, formatJSON, formatYAML); err != nil {
				return err
			}
			keyword, _ := cmd.Flags().GetString("keyword")
			url, _ := cmd.Flags().GetString("url")
			if url == "" {
				return usageError("--url is required")
			}
			out, _ := cmd.Flags().GetString("out")

			cfg := quietConfig(loadConfig(cmd), cmd)
			a, cleanup, err := e.build(cmd.Context(), cmd, "cli", cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			result, err := a.Pipeline.Optimize(cmd.Context(), geo.Request{Keyword: keyword, URL: url})
			if err != nil {
				return pipelineError(err)
			}
			if out != "" {
				if err := os.WriteFile(out, []byte(result.OptimizedHTML), 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "optimized HTML written to %s\n", out)
			}
			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, result)
			}
			if out == "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), result.OptimizedHTML)
				return err
			}
			if result.AuditInsights != "" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), result.AuditInsights)
			}
			return err
		},
	}
	cmd.Flags().String("keyword", "", "Keyword the page should answer")
	cmd.Flags().String("url", "", "Page to optimize (required)")
	cmd.Flags().String("out", "", "Write the optimized HTML to this file")
	cmd.Flags().String("format", formatText, "Output format: text | json | yaml")
	return cmd
}

// pipelineError keeps the pipeline's own message, which already names the
// failing step.
func pipelineError(err error) error {
	code := exitFailed
	if errors.Is(err, geo.ErrNothingToAnalyze) || errors.Is(err, geo.ErrURLRequired) {
		code = exitUsage
	}
	return &ExitError{Code: code, Message: err.Error(), Err: err}
}

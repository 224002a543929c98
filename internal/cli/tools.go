package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/geo-agent/geo-mcp-server/internal/config"
	"github.com/geo-agent/geo-mcp-server/internal/mcp"
	"github.com/geo-agent/geo-mcp-server/internal/protocol"
)

func (e *env) newToolsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List the registered tools",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			format, _ := cmd.Flags().GetString("format")
			if err := checkFormat(format, formatText, formatJSON, formatYAML); err != nil {
				return err
			}
			var descriptors []protocol.ToolDescriptor
			if client := remoteClient(cmd); client != nil {
				list, err := client.ListTools(cmd.Context())
				if err != nil {
					return failedError(err, "list remote tools")
				}
				descriptors = list
			} else {
				cfg := quietConfig(loadConfig(cmd), cmd)
				a, cleanup, err := e.build(cmd.Context(), cmd, "cli", cfg)
				if err != nil {
					return err
				}
				defer cleanup()
				descriptors = a.Toolbox.Describe()
			}

			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, descriptors)
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tDESCRIPTION")
			for _, d := range descriptors {
				fmt.Fprintf(tw, "%s\t%s\n", d.Name, firstLine(d.Description))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().String("format", formatText, "Output format: text | json | yaml")
	addRemoteFlags(cmd)
	return cmd
}

func (e *env) newCallCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <tool> [arguments-json]",
		Short: "Invoke one tool and print its result",
		Long: `Invoke one tool with a JSON arguments object, given inline, or read from
stdin when the argument is "-".

  geo-mcp call schema-generator '{"type":"FAQPage","entity":{"name":"Corgi"}}'`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			if err := checkFormat(format, formatText, formatJSON, formatYAML); err != nil {
				return err
			}
			raw, err := callArguments(cmd.InOrStdin(), args[1:])
			if err != nil {
				return err
			}

			name := args[0]
			var result protocol.CallResult
			if client := remoteClient(cmd); client != nil {
				result, err = client.CallTool(cmd.Context(), name, raw)
				if err != nil {
					return failedError(err, "call remote tool")
				}
			} else {
				cfg := quietConfig(loadConfig(cmd), cmd)
				a, cleanup, err := e.build(cmd.Context(), cmd, "cli", cfg)
				if err != nil {
					return err
				}
				defer cleanup()
				if !a.Toolbox.Has(name) {
					return notFoundError("unknown tool: %s", name)
				}
				result = a.Toolbox.Call(cmd.Context(), name, raw)
			}

			if format != formatText {
				return writeStructured(cmd.OutOrStdout(), format, result)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), result.Text())
			return err
		},
	}
	cmd.Flags().String("format", formatText, "Output format: text | json | yaml")
	addRemoteFlags(cmd)
	return cmd
}

func addRemoteFlags(cmd *cobra.Command) {
	cmd.Flags().String("remote", "", "Talk to a running server's MCP endpoint instead (e.g. http://localhost:3000/mcp)")
	cmd.Flags().String("token", "", "Bearer token for --remote (defaults to GEO_API_TOKEN)")
}

// remoteClient returns a client when --remote is set, nil otherwise.
func remoteClient(cmd *cobra.Command) *mcp.Client {
	endpoint, _ := cmd.Flags().GetString("remote")
	if endpoint == "" {
		return nil
	}
	token, _ := cmd.Flags().GetString("token")
	if token == "" {
		token = config.FromEnv().APIToken
	}
	return mcp.NewClient(endpoint, token, nil)
}

// callArguments returns the raw arguments object, or nil when none was given.
func callArguments(stdin io.Reader, rest []string) (json.RawMessage, error) {
	if len(rest) == 0 {
		return nil, nil
	}
	src := rest[0]
	if src == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("read arguments: %w", err)
		}
		src = string(data)
	}
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, nil
	}
	if !json.Valid([]byte(src)) {
		return nil, usageError("arguments are not valid JSON")
	}
	return json.RawMessage(src), nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

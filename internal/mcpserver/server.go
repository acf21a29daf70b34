// Package mcpserver exposes the analysis tool catalog over the Model
// Context Protocol, so MCP-capable clients can call the same tools the
// query pipeline orchestrates, without going through the HTTP API.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/floatchat/floatchat/internal/domain/tools"
	"github.com/floatchat/floatchat/internal/version"
)

// New builds an MCP server with one MCP tool per registered analysis tool.
func New(registry *tools.Registry) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "floatchat",
		Version: version.Version,
	}, nil)

	for _, t := range registry.List() {
		srv.AddTool(&mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: inputSchema(t.Args),
		}, toolHandler(t))
	}

	return srv
}

// Run serves the tool catalog over stdio until ctx ends or the client
// disconnects.
func Run(ctx context.Context, registry *tools.Registry) error {
	return New(registry).Run(ctx, &mcp.StdioTransport{})
}

// toolHandler adapts one registry tool to the MCP calling convention.
// Tool failures are reported as tool results, not protocol errors, so the
// client model can read them and retry with corrected arguments.
func toolHandler(t *tools.Tool) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if raw := req.Params.Arguments; len(raw) > 0 {
			if err := json.Unmarshal(raw, &args); err != nil {
				return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
			}
		}

		if err := tools.ValidateArgs(t, args); err != nil {
			return errorResult(err.Error()), nil
		}

		out, err := t.Run(ctx, args)
		if err != nil {
			return errorResult(err.Error()), nil
		}

		raw, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return errorResult(fmt.Sprintf("encode result: %v", err)), nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: string(raw)}},
		}, nil
	}
}

// inputSchema translates the registry's argument specs into a JSON schema.
func inputSchema(args []tools.ArgSpec) *jsonschema.Schema {
	properties := make(map[string]*jsonschema.Schema, len(args))
	var required []string
	for _, a := range args {
		properties[a.Name] = &jsonschema.Schema{
			Type:        string(a.Type),
			Description: a.Description,
		}
		if a.Required {
			required = append(required, a.Name)
		}
	}

	return &jsonschema.Schema{
		Type:       "object",
		Properties: properties,
		Required:   required,
	}
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
	}
}

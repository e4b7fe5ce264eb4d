package tool

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// ToMCP converts a backend-agnostic Definition into the MCP function-style
// tool shape, satisfying spec.md §4.4.2's "convert between tool
// representations (function-style vs. name/description/parameters flat
// style) as required by the backend".
func ToMCP(def Definition) mcp.Tool {
	schema := mcp.ToolInputSchema{Type: "object"}
	if def.Parameters != nil {
		if props, ok := def.Parameters["properties"].(map[string]any); ok {
			schema.Properties = props
		}
		if req, ok := def.Parameters["required"].([]string); ok {
			schema.Required = req
		} else if reqAny, ok := def.Parameters["required"].([]any); ok {
			for _, r := range reqAny {
				if s, ok := r.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}
	}
	return mcp.Tool{
		Name:        def.Name,
		Description: def.Description,
		InputSchema: schema,
	}
}

// FromMCP converts an MCP tool definition to the flat Definition shape used
// internally and advertised to non-MCP backends.
func FromMCP(t mcp.Tool) Definition {
	return Definition{
		Name:        t.Name,
		Description: t.Description,
		Parameters: map[string]any{
			"type":       "object",
			"properties": t.InputSchema.Properties,
			"required":   t.InputSchema.Required,
		},
	}
}

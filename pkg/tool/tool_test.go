package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoTool struct{}

func (echoTool) Definition() Definition {
	return Definition{Name: "echo", Description: "echoes input"}
}

func (echoTool) Call(_ context.Context, args map[string]any) (Result, error) {
	return Result{Output: args["text"].(string)}, nil
}

func TestHandlerRejectsReservedNames(t *testing.T) {
	_, err := NewHandler(reservedTool{name: NewAnswer})
	require.Error(t, err)

	_, err = NewHandler(reservedTool{name: Vote})
	require.Error(t, err)
}

type reservedTool struct{ name string }

func (r reservedTool) Definition() Definition { return Definition{Name: r.name} }
func (r reservedTool) Call(context.Context, map[string]any) (Result, error) {
	return Result{}, nil
}

func TestHandlerDispatchesByName(t *testing.T) {
	h, err := NewHandler(echoTool{})
	require.NoError(t, err)

	res, err := h.Handle(context.Background(), "echo", map[string]any{"text": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", res.Output)
}

func TestHandlerUnknownToolErrors(t *testing.T) {
	h, err := NewHandler()
	require.NoError(t, err)
	_, err = h.Handle(context.Background(), "nope", nil)
	assert.Error(t, err)
}

func TestNormalizeArgumentsAcceptsObjectOrJSONString(t *testing.T) {
	m, err := NormalizeArguments(map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, 1, m["a"])

	m, err = NormalizeArguments(`{"a": 2}`)
	require.NoError(t, err)
	assert.EqualValues(t, 2, m["a"])

	m, err = NormalizeArguments(nil)
	require.NoError(t, err)
	assert.Empty(t, m)
}

func TestNormalizeArgumentsRejectsMalformedJSON(t *testing.T) {
	_, err := NormalizeArguments(`{not json`)
	assert.Error(t, err)
}

func TestCoordinationDefinitionsHaveSchemas(t *testing.T) {
	defs := CoordinationDefinitions()
	require.Len(t, defs, 2)
	for _, d := range defs {
		assert.NotEmpty(t, d.Parameters)
	}
}

func TestMCPRoundTrip(t *testing.T) {
	def := Definition{
		Name:        "search",
		Description: "search the web",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{"type": "string"},
			},
			"required": []string{"query"},
		},
	}
	mcpTool := ToMCP(def)
	assert.Equal(t, "search", mcpTool.Name)
	assert.Equal(t, []string{"query"}, mcpTool.InputSchema.Required)

	back := FromMCP(mcpTool)
	assert.Equal(t, def.Name, back.Name)
}

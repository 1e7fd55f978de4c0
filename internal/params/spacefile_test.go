package params

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleSpaces = `spaces:
  ema-grid:
    type: grid
    dimensions:
      - name: fast
        range: {from: 5, to: 20, step: 5, int: true}
      - name: slow
        values: [30, 60, 90]
  rsi-random:
    type: random
    trials: 25
    dimensions:
      - name: period
        values: [7, 14, 21]
  passthrough:
    type: empty
`

func writeSpaces(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "spaces.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestReadSpaceFile(t *testing.T) {
	defs, err := ReadSpaceFile(writeSpaces(t, sampleSpaces))
	require.NoError(t, err)
	require.Len(t, defs, 3)

	t.Run("grid with range", func(t *testing.T) {
		space, err := defs["ema-grid"].Build()
		require.NoError(t, err)
		assert.Equal(t, 12, space.Size())
	})

	t.Run("random", func(t *testing.T) {
		space, err := defs["rsi-random"].Build()
		require.NoError(t, err)
		assert.Equal(t, 25, space.Size())
	})

	t.Run("empty", func(t *testing.T) {
		space, err := defs["passthrough"].Build()
		require.NoError(t, err)
		assert.Equal(t, 1, space.Size())
	})
}

func TestReadSpaceFileRejectsUnknownFields(t *testing.T) {
	_, err := ReadSpaceFile(writeSpaces(t, `spaces:
  bad:
    type: grid
    dimmensions: []
`))
	require.Error(t, err)
}

func TestSpaceDefBuildErrors(t *testing.T) {
	cases := []struct {
		name string
		def  SpaceDef
	}{
		{"unknown type", SpaceDef{Type: "bayesian"}},
		{"grid without dimensions", SpaceDef{Type: "grid"}},
		{"random without trials", SpaceDef{Type: "random", Dimensions: []DimensionDef{{Name: "x", Values: []any{1}}}}},
		{"dimension without values", SpaceDef{Type: "grid", Dimensions: []DimensionDef{{Name: "x"}}}},
		{"values and range together", SpaceDef{Type: "grid", Dimensions: []DimensionDef{{
			Name: "x", Values: []any{1}, Range: &RangeDef{From: 0, To: 1, Step: 1},
		}}}},
		{"zero step", SpaceDef{Type: "grid", Dimensions: []DimensionDef{{
			Name: "x", Range: &RangeDef{From: 0, To: 1, Step: 0},
		}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.def.Build()
			require.Error(t, err)
		})
	}
}

func TestRegistryGet(t *testing.T) {
	reg, err := NewRegistry(writeSpaces(t, sampleSpaces))
	require.NoError(t, err)

	def, ok := reg.Get("ema-grid")
	require.True(t, ok)
	assert.Equal(t, "grid", def.Type)

	_, ok = reg.Get("nope")
	assert.False(t, ok)

	assert.Equal(t, []string{"ema-grid", "passthrough", "rsi-random"}, reg.Names())
}

func TestParseSpaceJSON(t *testing.T) {
	t.Run("bare object", func(t *testing.T) {
		def, err := ParseSpaceJSON([]byte(`{"type":"random","trials":10,"dimensions":[{"name":"period","values":[7,14]}]}`))
		require.NoError(t, err)
		space, err := def.Build()
		require.NoError(t, err)
		assert.Equal(t, 10, space.Size())
	})

	t.Run("wrapped under space key", func(t *testing.T) {
		def, err := ParseSpaceJSON([]byte(`{"space":{"type":"empty"}}`))
		require.NoError(t, err)
		assert.Equal(t, "empty", def.Type)
	})

	t.Run("schema rejects bad type", func(t *testing.T) {
		_, err := ParseSpaceJSON([]byte(`{"type":"genetic"}`))
		require.Error(t, err)
	})

	t.Run("schema rejects extra field", func(t *testing.T) {
		_, err := ParseSpaceJSON([]byte(`{"type":"grid","seed":42}`))
		require.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParseSpaceJSON([]byte(`{"type":`))
		require.Error(t, err)
	})
}

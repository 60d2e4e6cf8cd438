package canon

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMarshal_SortsKeys(t *testing.T) {
	in := map[string]interface{}{"b": 1, "a": 2, "c": 3}
	out, err := MarshalString(in)
	require.NoError(t, err)
	require.Equal(t, `{"a":2,"b":1,"c":3}`, out)
}

func TestMarshal_NoInsignificantWhitespace(t *testing.T) {
	in := map[string]interface{}{
		"op":     "concat",
		"inputs": []interface{}{"x", "y"},
	}
	out, err := MarshalString(in)
	require.NoError(t, err)
	require.NotContains(t, out, " ")
	require.NotContains(t, out, "\n")
}

func TestMarshal_Deterministic(t *testing.T) {
	type recipe struct {
		Operation string                 `json:"operation"`
		Params    map[string]interface{} `json:"params"`
	}
	a := recipe{Operation: "llm", Params: map[string]interface{}{"model": "x", "prompt": "p"}}
	b := recipe{Operation: "llm", Params: map[string]interface{}{"prompt": "p", "model": "x"}}

	outA, err := MarshalString(a)
	require.NoError(t, err)
	outB, err := MarshalString(b)
	require.NoError(t, err)
	require.Equal(t, outA, outB)
}

func TestMarshal_NoHTMLEscaping(t *testing.T) {
	out, err := MarshalString("a<b>&c")
	require.NoError(t, err)
	require.Equal(t, `"a<b>&c"`, out)
}

func TestMarshal_NumberRoundTrip(t *testing.T) {
	out, err := MarshalString(map[string]interface{}{"n": 9007199254740993})
	require.NoError(t, err)
	require.Equal(t, `{"n":9007199254740993}`, out)
}

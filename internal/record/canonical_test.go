package record

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical_SortedCompact(t *testing.T) {
	obj := Object{
		"result":   String("win"),
		"attempts": Array{Int(50), Int(25), Int(37)},
		"hint":     Null{},
	}
	data, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, `{"attempts":[50,25,37],"hint":null,"result":"win"}`, string(data))
}

func TestMarshalCanonical_NoHTMLEscaping(t *testing.T) {
	data, err := MarshalCanonical(String("<a & b>"))
	require.NoError(t, err)
	assert.Equal(t, `"<a & b>"`, string(data))
}

func TestMarshalCanonical_StringsVerbatim(t *testing.T) {
	// "e" + combining acute accent must not be folded into U+00E9.
	decomposed := "Zoe\u0301"
	data, err := MarshalCanonical(String(decomposed))
	require.NoError(t, err)
	assert.Equal(t, `"`+decomposed+`"`, string(data))
}

func TestMarshalCanonical_Deterministic(t *testing.T) {
	obj := Object{"b": Int(2), "a": Int(1), "c": Object{"z": Bool(true), "y": Bool(false)}}
	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestMarshalCanonical_NilValueIsNull(t *testing.T) {
	data, err := MarshalCanonical(Object{"hint": nil, "result": String("win")})
	require.NoError(t, err)
	assert.Equal(t, `{"hint":null,"result":"win"}`, string(data))

	data, err = MarshalCanonical(Array{nil, Int(1)})
	require.NoError(t, err)
	assert.Equal(t, `[null,1]`, string(data))
}

func TestMarshalCanonical_Floats(t *testing.T) {
	tests := []struct {
		in   Float
		want string
	}{
		{12.5, "12.5"},
		{0.5, "0.5"},
		{-0.1, "-0.1"},
		{1.25e-7, "1.25e-7"},
		{1.5e300, "1.5e+300"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			data, err := MarshalCanonical(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(data))

			// Decoding the bytes gives back the same value.
			var obj Object
			require.NoError(t, json.Unmarshal([]byte(`{"v":`+string(data)+`}`), &obj))
			assert.Equal(t, tt.in, obj["v"])
		})
	}
}

func TestMarshalCanonical_RejectsNonFiniteFloat(t *testing.T) {
	_, err := MarshalCanonical(Object{"x": Float(math.NaN())})
	assert.Error(t, err)
	_, err = MarshalCanonical(Float(math.Inf(-1)))
	assert.Error(t, err)
}

package module

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"./src/a.js", "src/a.js"},
		{"src//b/../a.js", "src/a.js"},
		{"src\\win\\c.ts", "src/win/c.ts"},
		{".", ""},
		{"../outside/x.js", "../outside/x.js"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := NormalizePath(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, NormalizePath(got), "normalization must be idempotent")
		})
	}
}

func TestKindText(t *testing.T) {
	for _, k := range []Kind{KindLocal, KindExternal, KindCore} {
		b, err := k.MarshalText()
		require.NoError(t, err)
		var back Kind
		require.NoError(t, back.UnmarshalText(b))
		assert.Equal(t, k, back)
	}
	_, err := ParseKind("plugin")
	assert.Error(t, err)
}

func TestNewIdentity_SameEntitySameValue(t *testing.T) {
	a := NewIdentity("./src/x/../a.js", KindLocal)
	b := NewIdentity("src/a.js", KindLocal)
	assert.Equal(t, a, b)
}

func TestMergeTypes(t *testing.T) {
	got := MergeTypes([]string{"npm", "es6"}, []string{"cjs", "npm", ""})
	assert.Equal(t, []string{"cjs", "es6", "npm"}, got)
	assert.Empty(t, MergeTypes(nil, nil))
}

func TestIsKnownType(t *testing.T) {
	assert.True(t, IsKnownType("npm-dev"))
	assert.True(t, IsKnownType("es6"))
	assert.False(t, IsKnownType("npm-devv"))
}

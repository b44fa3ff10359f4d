package net

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantErr   bool
		authority string
		path      string
		query     string
	}{
		{name: "binder authority", raw: "mindroid://1.2", authority: "1.2"},
		{name: "service authority", raw: "mindroid://clock", authority: "clock"},
		{name: "interface path", raw: "mindroid://1.2/if=mindroid/example/IClock", authority: "1.2", path: "/if=mindroid/example/IClock"},
		{name: "query string", raw: "ssl+mindroid://1.2?version=1", authority: "1.2", query: "version=1"},
		{name: "missing scheme", raw: "1.2", wantErr: true},
		{name: "empty", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := Parse(tt.raw)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.authority, u.Authority)
			assert.Equal(t, tt.path, u.Path)
			assert.Equal(t, tt.query, u.Query)
		})
	}
}

func TestURI_String_RoundTrips(t *testing.T) {
	raw := "mindroid://1.2/if=mindroid/example/IClock?version=1"
	u, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, raw, u.String())
}

func TestURI_InterfaceDescriptor(t *testing.T) {
	u, err := Parse("mindroid://1.2/if=mindroid/example/IClock")
	require.NoError(t, err)
	descriptor, ok := u.InterfaceDescriptor()
	assert.True(t, ok)
	assert.Equal(t, "mindroid://interfaces/mindroid/example/IClock", descriptor)

	u, err = Parse("mindroid://1.2")
	require.NoError(t, err)
	_, ok = u.InterfaceDescriptor()
	assert.False(t, ok)
}

func TestSplitAuthority(t *testing.T) {
	node, local, ok := SplitAuthority("1.2")
	require.True(t, ok)
	assert.Equal(t, uint32(1), node)
	assert.Equal(t, uint32(2), local)

	_, _, ok = SplitAuthority("clock")
	assert.False(t, ok)
}

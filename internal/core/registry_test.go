package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Len())

	r.Register(FormatRow, identity)
	r.Register(FormatCSV, identity)

	p, ok := r.Get(FormatCSV)
	require.True(t, ok)
	out, err := p("x")
	require.NoError(t, err)
	assert.Equal(t, "x", out)

	_, ok = r.Get(FormatGeoJSON)
	assert.False(t, ok)

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, []Format{FormatCSV, FormatRow}, r.Formats())
}

func TestRegistry_Panics(t *testing.T) {
	r := NewRegistry()
	r.Register(FormatCSV, identity)

	assert.Panics(t, func() { r.Register(FormatCSV, identity) }, "duplicate")
	assert.Panics(t, func() { r.Register(FormatRow, nil) }, "nil processor")
	assert.Panics(t, func() { r.Register(FormatUnrecognized, identity) }, "unrecognized format")
}

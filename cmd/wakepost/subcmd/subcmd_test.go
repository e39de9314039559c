package subcmd

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/temoto/wakepost/internal/state"
)

func TestParse(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, *state.Config) error { return nil }
	mods := []Mod{{Name: "cycle", Main: noop}, {Name: "sample", Main: noop}}
	m, err := Parse("sample", mods)
	require.NoError(t, err)
	assert.Equal(t, "sample", m.Name)

	_, err = Parse("", mods)
	assert.EqualError(t, err, "empty command")
	_, err = Parse("reboot", mods)
	assert.EqualError(t, err, "unknown command='reboot'")
	assert.Panics(t, func() { _, _ = Parse("x", []Mod{{Main: noop}}) })
}

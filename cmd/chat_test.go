package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequirePipedAgent(t *testing.T) {
	var out bytes.Buffer
	err := requirePipedAgent(&out, false, "")
	assert.ErrorIs(t, err, errPipedNoAgent)
	assert.Equal(t, "Please specify an agent when using pipes\n", out.String())

	out.Reset()
	assert.NoError(t, requirePipedAgent(&out, false, "sage"))
	assert.NoError(t, requirePipedAgent(&out, true, ""))
	assert.Empty(t, out.String())
}

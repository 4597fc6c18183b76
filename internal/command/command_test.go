package command

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTail(t *testing.T) {
	assert.Equal(t, "abc", Tail("  abc \n", 10))
	assert.Equal(t, "cde", Tail("abcde", 3))
	assert.Equal(t, "", Tail("", 3))
}

func TestExecRun(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	res, err := Exec{}.Run(context.Background(), "sh", "-c", "echo out; echo err >&2; exit 3")
	require.Error(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)

	log := NewLog("sh", []string{"-c", "..."}, res)
	assert.Equal(t, 3, log.ExitCode)
	assert.Equal(t, "err", log.Stderr)
}

func TestExecMissingBinary(t *testing.T) {
	res, err := Exec{}.Run(context.Background(), "reelscribe-no-such-binary")
	require.Error(t, err)
	assert.True(t, errors.Is(err, exec.ErrNotFound))
	assert.Equal(t, -1, res.ExitCode)
}

package errors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAny(t *testing.T) {
	errA := New("a")
	errB := New("b")

	assert.True(t, IsAny(Wrap(errA, "poll"), errB, errA))
	assert.True(t, IsAny(Wrapf(context.DeadlineExceeded, "GET %s", "/sessions/active"), context.DeadlineExceeded))
	assert.False(t, IsAny(errA, errB))
	assert.False(t, IsAny(nil, errA))
	assert.False(t, IsAny(errA))
}

func TestCause(t *testing.T) {
	root := New("root")

	assert.Equal(t, root, Cause(Wrap(WithStack(root), "outer")))
}

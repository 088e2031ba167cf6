package catalog

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Parallel()
	err := NewError(KindNoResults, "search", errors.New("zero candidates"))
	assert.Equal(t, KindNoResults, KindOf(err))
	assert.Equal(t, ErrorKind(""), KindOf(errors.New("untagged")))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestKindSurvivesWrapping(t *testing.T) {
	t.Parallel()
	inner := NewError(KindNetwork, "fetch", errors.New("connection refused"))
	wrapped := fmt.Errorf("resolve pipeline: %w", inner)
	assert.True(t, IsNetwork(wrapped))
	assert.False(t, IsParse(wrapped))
}

func TestErrorString(t *testing.T) {
	t.Parallel()
	err := NewError(KindInvalidArgs, "search", errors.New("empty query"))
	assert.Equal(t, "search: invalid_args: empty query", err.Error())

	bare := NewError(KindParse, "parse detail", nil)
	assert.Equal(t, "parse detail: parse", bare.Error())
}

func TestUnwrap(t *testing.T) {
	t.Parallel()
	cause := errors.New("root cause")
	err := NewError(KindNetwork, "fetch", cause)
	assert.True(t, errors.Is(err, cause))
}

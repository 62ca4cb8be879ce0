package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppendError(t *testing.T) {
	t.Parallel()
	a := errors.New("first")
	b := errors.New("second")

	assert.Nil(t, AppendError(nil, nil))
	assert.Equal(t, a, AppendError(nil, a))
	assert.Equal(t, a, AppendError(a, nil))

	combined := AppendError(a, b)
	assert.ErrorIs(t, combined, b, "the newest error stays unwrappable")
	assert.Contains(t, combined.Error(), "first")
}

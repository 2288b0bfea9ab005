package errors

import (
	"errors"
	"fmt"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsMatchesByKind(t *testing.T) {
	err := New(KindMalformedRecord, "missing ':' in %q", "SUMMARY")
	assert.True(t, errors.Is(err, ErrMalformedRecord))
	assert.False(t, errors.Is(err, ErrCapacityExceeded))

	wrapped := fmt.Errorf("read events: %w", err)
	assert.True(t, errors.Is(wrapped, ErrMalformedRecord))
	assert.Equal(t, KindMalformedRecord, KindOf(wrapped))
}

func TestWrapKeepsCause(t *testing.T) {
	err := Wrap(fs.ErrNotExist, KindInputFileUnreadable, "open %s", "cal.ics")
	require.True(t, errors.Is(err, fs.ErrNotExist))
	require.True(t, errors.Is(err, ErrInputFileUnreadable))
	assert.Equal(t, "InputFileUnreadable: open cal.ics: file does not exist", err.Error())
}

func TestAtLine(t *testing.T) {
	base := New(KindMalformedRecord, "line has no ':' separator")
	err := base.AtLine(7)
	assert.Equal(t, "MalformedRecord: line 7: line has no ':' separator", err.Error())
	assert.Equal(t, 0, base.Line)
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

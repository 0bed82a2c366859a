package rangeparse

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSimpleRange(t *testing.T) {
	iv, ok := Parse("bytes=3-5", 9)
	assert.True(t, ok)
	assert.Equal(t, Interval{Start: 3, End: 5}, iv)
}

func TestParseOpenEndedRangeClampsToLength(t *testing.T) {
	iv, ok := Parse("bytes=3-", 9)
	assert.True(t, ok)
	assert.Equal(t, Interval{Start: 3, End: 8}, iv)
}

func TestParseEndBeyondLengthClamps(t *testing.T) {
	iv, ok := Parse("bytes=0-999", 9)
	assert.True(t, ok)
	assert.Equal(t, Interval{Start: 0, End: 8}, iv)
}

func TestParseMultiRangeHonorsFirstInterval(t *testing.T) {
	iv, ok := Parse("bytes=1-2, 4-5", 9)
	assert.True(t, ok)
	assert.Equal(t, Interval{Start: 1, End: 2}, iv)
}

func TestParseStartBeyondLengthUnsatisfiable(t *testing.T) {
	_, ok := Parse("bytes=100-200", 9)
	assert.False(t, ok)
}

func TestParseGarbageUnsatisfiable(t *testing.T) {
	_, ok := Parse("bytes=meow", 9)
	assert.False(t, ok)
}

func TestParseMissingPrefixUnsatisfiable(t *testing.T) {
	_, ok := Parse("3-5", 9)
	assert.False(t, ok)
}

func TestParseEmptyFileUnsatisfiable(t *testing.T) {
	_, ok := Parse("bytes=0-0", 0)
	assert.False(t, ok)
}

func TestParseStartEqualsLastByte(t *testing.T) {
	iv, ok := Parse("bytes=8-8", 9)
	assert.True(t, ok)
	assert.Equal(t, Interval{Start: 8, End: 8}, iv)
}

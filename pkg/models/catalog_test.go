package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{
		"movie":   KindMovie,
		" Movies": KindMovie,
		"tv":      KindSeries,
		"Series":  KindSeries,
		"shows":   KindSeries,
	}
	for in, want := range cases {
		got, err := ParseKind(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseKind("anime")
	assert.ErrorIs(t, err, ErrInvalidKind)
	assert.False(t, Kind("").Valid())
}

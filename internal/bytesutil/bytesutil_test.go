package bytesutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInt(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"123", 123},
		{"-1", -1},
		{"-123456789", -123456789},
		{"+5", 5},
	}
	for _, c := range cases {
		got, err := ParseInt([]byte(c.in))
		require.NoError(t, err, c.in)
		assert.Equal(t, c.want, got, c.in)
	}
}

func TestParseIntErrors(t *testing.T) {
	for _, in := range []string{"", "-", "12a", "a12"} {
		_, err := ParseInt([]byte(in))
		assert.Error(t, err, in)
	}
}

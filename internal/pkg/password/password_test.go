package password

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCompare(t *testing.T) {
	hash, err := Hash("Abcdef1!")
	require.NoError(t, err)
	require.NotEqual(t, "Abcdef1!", hash)
	require.NoError(t, Compare(hash, "Abcdef1!"))
	require.Error(t, Compare(hash, "abcdef1!"))
}

func TestIsStrong(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"Abcdef1!", true},
		{"abcdef1!", false},
		{"ABCDEF1!", false},
		{"Abcdefg!", false},
		{"Abcdefg1", false},
		{"Ab1!", false},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, IsStrong(tt.in), tt.in)
	}
}

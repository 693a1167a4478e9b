package judge

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		status string
		want   Classification
	}{
		{StatusInQueue, ClassQueued},
		{StatusProcessing, ClassQueued},
		{StatusAccepted, ClassSuccess},
		{"Wrong Answer", ClassFailure},
		{"Time Limit Exceeded", ClassFailure},
		{"Compilation Error", ClassFailure},
		{"Runtime Error (SIGSEGV)", ClassFailure},
		{"Internal Error", ClassFailure},
		{"", ClassFailure},
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, Classify(tc.status), "status %q", tc.status)
	}
}

func TestIsTerminal(t *testing.T) {
	require.False(t, IsTerminal(StatusInQueue))
	require.False(t, IsTerminal(StatusProcessing))
	require.True(t, IsTerminal(StatusAccepted))
	require.True(t, IsTerminal("Wrong Answer"))
}

package core

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCheckProtocolVersion_SameVersionAlwaysOK(t *testing.T) {
	require.NoError(t, CheckProtocolVersion("1.0.0", "1.0.0"))
}

func TestCheckProtocolVersion_OlderMinorIsAccepted(t *testing.T) {
	require.NoError(t, CheckProtocolVersion("1.2.0", "1.0.0"))
}

func TestCheckProtocolVersion_GreaterMajorIsRejected(t *testing.T) {
	require.ErrorIs(t, CheckProtocolVersion("1.0.0", "2.0.0"), ErrUnsupportedProtocol)
}

func TestCheckProtocolVersion_UnparseableVersionIsRejected(t *testing.T) {
	require.ErrorIs(t, CheckProtocolVersion("1.0.0", "not-a-version"), ErrUnsupportedProtocol)
}

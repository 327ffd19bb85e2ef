package matrixctl_test

import (
	"testing"

	"github.com/fwojciec/matrixctl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMXC(t *testing.T) {
	t.Parallel()

	mxc, err := matrixctl.ParseMXC(" mxc://example.org/abcdef ")

	require.NoError(t, err)
	assert.Equal(t, matrixctl.MXC{ServerName: "example.org", MediaID: "abcdef"}, mxc)
	assert.Equal(t, "mxc://example.org/abcdef", mxc.String())

	for _, bad := range []string{"", "https://example.org/abcdef", "mxc://example.org", "mxc:///abcdef", "mxc://example.org/a/b"} {
		_, err := matrixctl.ParseMXC(bad)
		assert.Equal(t, matrixctl.EINVALID, matrixctl.ErrorCode(err), bad)
	}
}

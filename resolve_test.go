package eredis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveIPv4Literal(t *testing.T) {
	addrs, err := resolveAddrs("127.0.0.1", 6379)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, FamilyTCP4, addrs[0].Family)
	assert.Equal(t, "127.0.0.1:6379", addrs[0].Address)
}

func TestResolveIPv6Literal(t *testing.T) {
	addrs, err := resolveAddrs("::1", 6379)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, FamilyTCP6, addrs[0].Family)
	assert.Equal(t, "[::1]:6379", addrs[0].Address)
}

func TestResolveUnixPath(t *testing.T) {
	addrs, err := resolveAddrs("/var/run/redis.sock", 0)
	require.NoError(t, err)
	require.Len(t, addrs, 1)
	assert.Equal(t, FamilyLocal, addrs[0].Family)
	assert.Equal(t, "unix", addrs[0].Network)
	assert.Equal(t, "/var/run/redis.sock", addrs[0].Address)
}

package remote_test

import (
	"testing"
	"time"

	"github.com/jessegalley/checknfs/internal/remote"
	"github.com/stretchr/testify/assert"
)

func TestNewClientDefaults(t *testing.T) {
	client := remote.NewClient("nfs01.example.com", "nagios")

	assert.Equal(t, "nfs01.example.com", client.Host)
	assert.Equal(t, "nagios", client.User)
	assert.Equal(t, 22, client.Port)
	assert.Equal(t, 30*time.Second, client.Timeout)
}

func TestAddr(t *testing.T) {
	client := remote.NewClient("nfs01.example.com", "nagios")
	assert.Equal(t, "nfs01.example.com:22", client.Addr())

	client.Port = 2222
	assert.Equal(t, "nfs01.example.com:2222", client.Addr())

	// zero port falls back to the default rather than dialing :0
	client.Port = 0
	assert.Equal(t, "nfs01.example.com:22", client.Addr())
}

func TestAddrIPv6(t *testing.T) {
	client := remote.NewClient("fd00::31", "nagios")
	assert.Equal(t, "[fd00::31]:22", client.Addr())
}

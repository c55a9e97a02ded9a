// Package remote fetches `/proc/self/mountstats` from the target host
// over SSH. Reading mountstats needs no elevated permissions on the
// remote side, just a login for the monitoring user.
package remote

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
)

const (
	mountstatsPath = "/proc/self/mountstats" // this path is where mountstats exist on all linux

	defaultPort    = 22
	defaultTimeout = 30 * time.Second
)

// Client runs the mountstats read on a remote host. Fields may be
// adjusted after construction, before the first FetchMountstats call.
type Client struct {
	Host    string
	User    string
	Port    int
	KeyFile string        // optional private key, tried after the ssh agent
	Timeout time.Duration // connect timeout, zero means the default
	Log     *zap.Logger
}

// NewClient constructs a Client for user@host with default port and
// timeout.
func NewClient(host, user string) *Client {
	return &Client{
		Host:    host,
		User:    user,
		Port:    defaultPort,
		Timeout: defaultTimeout,
		Log:     zap.NewNop(),
	}
}

// FetchMountstats connects to the host and returns the verbatim content
// of its mountstats file. Every failure mode (dial, auth, session, remote
// command) surfaces as an error; the caller treats them all the same.
func (c *Client) FetchMountstats() (string, error) {
	cfg := &ssh.ClientConfig{
		User: c.User,
		Auth: c.authMethods(),
		// keys are swapped with monitored hosts out of band, host key
		// verification stays with the monitoring environment
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         c.timeout(),
	}

	conn, err := ssh.Dial("tcp", c.Addr(), cfg)
	if err != nil {
		return "", fmt.Errorf("couldn't connect to %s: %w", c.Addr(), err)
	}
	defer conn.Close()

	session, err := conn.NewSession()
	if err != nil {
		return "", fmt.Errorf("couldn't open session on %s: %w", c.Addr(), err)
	}
	defer session.Close()

	out, err := session.Output("cat " + mountstatsPath)
	if err != nil {
		return "", fmt.Errorf("couldn't read %s on %s: %w", mountstatsPath, c.Host, err)
	}

	c.log().Debug("fetched mountstats",
		zap.String("host", c.Host),
		zap.Int("bytes", len(out)))

	return string(out), nil
}

// Addr returns the host:port dial address.
func (c *Client) Addr() string {
	port := c.Port
	if port == 0 {
		port = defaultPort
	}

	return net.JoinHostPort(c.Host, strconv.Itoa(port))
}

func (c *Client) timeout() time.Duration {
	if c.Timeout == 0 {
		return defaultTimeout
	}

	return c.Timeout
}

func (c *Client) log() *zap.Logger {
	if c.Log == nil {
		return zap.NewNop()
	}

	return c.Log
}

// authMethods assembles the auth methods to offer: a running ssh agent if
// one is reachable, then the configured key file. Unusable sources are
// logged and skipped, the dial will fail with an auth error if nothing
// works.
func (c *Client) authMethods() []ssh.AuthMethod {
	var methods []ssh.AuthMethod

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		conn, err := net.Dial("unix", sock)
		if err != nil {
			c.log().Debug("ssh agent unreachable", zap.Error(err))
		} else {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		}
	}

	if c.KeyFile != "" {
		key, err := os.ReadFile(c.KeyFile)
		if err != nil {
			c.log().Debug("couldn't read key file", zap.String("path", c.KeyFile), zap.Error(err))
			return methods
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			c.log().Debug("couldn't parse key file", zap.String("path", c.KeyFile), zap.Error(err))
			return methods
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}

	return methods
}

package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jessegalley/checknfs/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("couldn't load default config: %v", err)
	}

	assert.Equal(t, 22, cfg.Port)
	assert.Equal(t, 30, cfg.TimeoutSec)
	assert.Equal(t, 30*time.Second, cfg.Timeout())
	assert.Equal(t, "", cfg.KeyFile)
	assert.Equal(t, "", cfg.HistoryDir)
}

func TestLoadFile(t *testing.T) {
	path := writeConfig(t, `port: 2222
timeout_sec: 5
key_file: /etc/nagios/.ssh/id_ed25519
history_dir: /var/lib/checknfs
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("couldn't load config file: %v", err)
	}

	assert.Equal(t, 2222, cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.Timeout())
	assert.Equal(t, "/etc/nagios/.ssh/id_ed25519", cfg.KeyFile)
	assert.Equal(t, "/var/lib/checknfs", cfg.HistoryDir)
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "history_dir: /var/lib/checknfs\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("couldn't load config file: %v", err)
	}

	assert.Equal(t, 22, cfg.Port)
	assert.Equal(t, 30, cfg.TimeoutSec)
	assert.Equal(t, "/var/lib/checknfs", cfg.HistoryDir)
}

func TestLoadRejectsBadPort(t *testing.T) {
	path := writeConfig(t, "port: 70000\n")

	_, err := config.Load(path)
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("couldn't write test config: %v", err)
	}

	return path
}

package history_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jessegalley/checknfs/internal/history"
	"github.com/stretchr/testify/assert"
)

func TestLoadMissingHistory(t *testing.T) {
	store := history.NewStore(t.TempDir(), "nfs01.example.com")

	_, err := store.Load()
	assert.ErrorIs(t, err, history.ErrNoHistory)
}

func TestSaveLoadRoundtrip(t *testing.T) {
	store := history.NewStore(t.TempDir(), "nfs01.example.com")

	content := "device srv:/vol mounted on /mnt with fstype nfs\n"
	if err := store.Save(content); err != nil {
		t.Fatalf("couldn't save history: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("couldn't load history back: %v", err)
	}
	assert.Equal(t, content, loaded)
}

func TestSaveOverwrites(t *testing.T) {
	store := history.NewStore(t.TempDir(), "nfs01.example.com")

	if err := store.Save("first run\n"); err != nil {
		t.Fatalf("couldn't save history: %v", err)
	}
	if err := store.Save("second run\n"); err != nil {
		t.Fatalf("couldn't overwrite history: %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("couldn't load history back: %v", err)
	}
	assert.Equal(t, "second run\n", loaded)
}

func TestPathNaming(t *testing.T) {
	dir := t.TempDir()
	store := history.NewStore(dir, "nfs01.example.com")

	assert.Equal(t, filepath.Join(dir, ".nfs__nfs01.example.com"), store.Path())
}

func TestPathDefaultsToTempDir(t *testing.T) {
	store := history.NewStore("", "nfs01")

	assert.Equal(t, filepath.Join(os.TempDir(), ".nfs__nfs01"), store.Path())
}

func TestPathFlattensSeparators(t *testing.T) {
	dir := t.TempDir()
	store := history.NewStore(dir, "../etc/passwd")

	path := store.Path()
	assert.Equal(t, dir, filepath.Dir(path))
	assert.Equal(t, ".nfs__.._etc_passwd", filepath.Base(path))
}

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/googol-lab/tvm/internal/feature"
)

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
	return path
}

func TestLoadAppliesExplicitValues(t *testing.T) {
	path := writeTempConfig(t, "cache_line_size: 32\nmax_n_bufs: 5\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CacheLineSize != 32 {
		t.Errorf("CacheLineSize = %d, want 32", cfg.CacheLineSize)
	}
	if cfg.MaxNBufs != 5 {
		t.Errorf("MaxNBufs = %d, want 5", cfg.MaxNBufs)
	}
}

// TestLoadDefaultsCacheLineSizeWhenAbsent confirms an omitted/zero
// cache_line_size falls back to feature.DefaultConfig's value.
func TestLoadDefaultsCacheLineSizeWhenAbsent(t *testing.T) {
	path := writeTempConfig(t, "max_n_bufs: 2\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := feature.DefaultConfig().CacheLineSize
	if cfg.CacheLineSize != want {
		t.Errorf("CacheLineSize = %d, want default %d", cfg.CacheLineSize, want)
	}
}

// TestLoadMaxNBufsZeroIsPreserved confirms MaxNBufs=0 (the file's zero
// value) is never defaulted away, since zero is itself a valid slot count.
func TestLoadMaxNBufsZeroIsPreserved(t *testing.T) {
	path := writeTempConfig(t, "cache_line_size: 64\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MaxNBufs != 0 {
		t.Errorf("MaxNBufs = %d, want 0", cfg.MaxNBufs)
	}
}

func TestLoadMissingFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}

func TestLoadMalformedYAMLErrors(t *testing.T) {
	path := writeTempConfig(t, "cache_line_size: [this, is, not, an, int]\n")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected an error for malformed YAML")
	}
}

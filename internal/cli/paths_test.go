package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/matzehuels/engraver/pkg/cache"
)

func TestCacheDir(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home directory: %v", err)
	}
	xdg := filepath.Join(t.TempDir(), "xdg")

	tests := []struct {
		name string
		xdg  string
		want string
	}{
		{"default under home", "", filepath.Join(home, ".cache", "engraver")},
		{"XDG_CACHE_HOME", xdg, filepath.Join(xdg, "engraver")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("XDG_CACHE_HOME", tt.xdg)
			dir, err := cacheDir()
			if err != nil {
				t.Fatalf("cacheDir() error = %v", err)
			}
			if dir != tt.want {
				t.Errorf("cacheDir() = %q, want %q", dir, tt.want)
			}
		})
	}
}

func TestNewCache(t *testing.T) {
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	c, err := newCache(true)
	if err != nil {
		t.Fatalf("newCache(noCache) error = %v", err)
	}
	if _, ok := c.(cache.NullCache); !ok {
		t.Errorf("--no-cache gave %T, want a null cache", c)
	}

	c, err = newCache(false)
	if err != nil {
		t.Fatalf("newCache() error = %v", err)
	}
	defer c.Close()
	if _, ok := c.(*cache.FileCache); !ok {
		t.Errorf("default cache is %T, want a file cache", c)
	}
}

package storage

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestFileStorage_SaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "good.txt")
	fs := NewFileStorage(path)

	proxies := []string{"1.1.1.1:80", "socks5://2.2.2.2:1080"}
	if err := fs.Save(proxies, Header(3, time.Unix(0, 0))); err != nil {
		t.Fatalf("Save() returned an error: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(raw), "# version 3, written 1970-01-01T00:00:00Z\n") {
		t.Errorf("Unexpected header: %q", raw)
	}

	got, err := fs.Load()
	if err != nil {
		t.Fatalf("Load() returned an error: %v", err)
	}
	if !reflect.DeepEqual(got, proxies) {
		t.Errorf("Load() = %v, want %v", got, proxies)
	}

	matches, _ := filepath.Glob(filepath.Join(filepath.Dir(path), "*.tmp"))
	if len(matches) != 0 {
		t.Errorf("Temp files left behind: %v", matches)
	}
}

func TestFileStorage_LoadMissing(t *testing.T) {
	fs := NewFileStorage(filepath.Join(t.TempDir(), "missing.txt"))
	got, err := fs.Load()
	if err != nil {
		t.Fatalf("Load() returned an error: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected an empty list, got %v", got)
	}
}

func TestFileStorage_SaveOverwrites(t *testing.T) {
	fs := NewFileStorage(filepath.Join(t.TempDir(), "good.txt"))
	if err := fs.Save([]string{"1.1.1.1:80", "2.2.2.2:80"}, ""); err != nil {
		t.Fatal(err)
	}
	if err := fs.Save([]string{"3.3.3.3:80"}, ""); err != nil {
		t.Fatal(err)
	}
	got, _ := fs.Load()
	if !reflect.DeepEqual(got, []string{"3.3.3.3:80"}) {
		t.Errorf("Expected the second save to replace the file, got %v", got)
	}
}

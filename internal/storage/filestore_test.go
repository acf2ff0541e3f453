package storage

import (
	"encoding/hex"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/zeebo/blake3"

	"github.com/kurokana/SiTeJo-Web/internal/apperr"
)

func TestSaveOpenDelete(t *testing.T) {
	fs, err := New(t.TempDir(), 1024)
	if err != nil {
		t.Fatal(err)
	}
	body := "scanned student card"
	res, err := fs.Save(strings.NewReader(body))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	sum := blake3.Sum256([]byte(body))
	if res.Checksum != hex.EncodeToString(sum[:]) || res.Size != int64(len(body)) {
		t.Fatalf("result = %+v", res)
	}

	f, err := fs.Open(res.StoragePath)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, _ := io.ReadAll(f)
	f.Close()
	if string(got) != body {
		t.Fatalf("content = %q", got)
	}

	if err := fs.Delete(res.StoragePath); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := fs.Delete(res.StoragePath); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := fs.Open(res.StoragePath); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("Open after delete err = %v", err)
	}
}

func TestSaveTooLarge(t *testing.T) {
	dir := t.TempDir()
	fs, err := New(dir, 4)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fs.Save(strings.NewReader("12345")); !errors.Is(err, ErrTooLarge) {
		t.Fatalf("err = %v", err)
	}
	var leftovers []string
	_ = filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err == nil && !info.IsDir() {
			leftovers = append(leftovers, path)
		}
		return nil
	})
	if len(leftovers) != 0 {
		t.Fatalf("temp files left behind: %v", leftovers)
	}
	if _, err := fs.Save(strings.NewReader("1234")); err != nil {
		t.Fatalf("exact limit: %v", err)
	}
}

func TestOpenRejectsEscapes(t *testing.T) {
	fs, _ := New(t.TempDir(), 16)
	for _, p := range []string{"../etc/passwd", "/etc/passwd", ""} {
		if _, err := fs.Open(p); !apperr.IsKind(err, apperr.KindNotFound) {
			t.Errorf("Open(%q) err = %v", p, err)
		}
	}
}

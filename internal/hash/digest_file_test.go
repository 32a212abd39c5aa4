package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDigestFile_SuiteContent(t *testing.T) {
	content := "name: smoke\ncases: []\n"
	path := writeFile(t, "suite.yaml", content)
	sum := sha256.Sum256([]byte(content))
	want := "sha256:" + hex.EncodeToString(sum[:])

	fd, err := DigestFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if fd.Digest != want || fd.Path != path {
		t.Errorf("got %+v, want digest %q for %s", fd, want, path)
	}
	if fd.Size != int64(len(content)) {
		t.Errorf("size = %d, want %d", fd.Size, len(content))
	}
}

func TestDigestFile_Empty(t *testing.T) {
	fd, err := DigestFile(writeFile(t, "empty.json", ""))
	if err != nil {
		t.Fatal(err)
	}
	if fd.Size != 0 || len(strings.TrimPrefix(fd.Digest, "sha256:")) != 64 {
		t.Errorf("unexpected digest %+v", fd)
	}
}

func TestDigestFile_NotFound(t *testing.T) {
	_, err := DigestFile(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "open") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestSetDigest(t *testing.T) {
	a, err := DigestFile(writeFile(t, "a.yaml", "cases: [a]\n"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := DigestFile(writeFile(t, "b.yaml", "cases: [b]\n"))
	if err != nil {
		t.Fatal(err)
	}

	single, err := SetDigest([]FileDigest{a})
	if err != nil || single != a.Digest {
		t.Fatalf("single file set = %q, %v; want %q", single, err, a.Digest)
	}

	ab, err := SetDigest([]FileDigest{a, b})
	if err != nil {
		t.Fatal(err)
	}
	ba, err := SetDigest([]FileDigest{b, a})
	if err != nil {
		t.Fatal(err)
	}
	if ab == ba || !strings.HasPrefix(ab, "sha256:") {
		t.Fatalf("set digest should depend on order: ab=%s ba=%s", ab, ba)
	}

	moved := a
	moved.Path = "/elsewhere/a.yaml"
	again, err := SetDigest([]FileDigest{moved, b})
	if err != nil || again != ab {
		t.Fatalf("set digest should ignore paths: %s vs %s (%v)", again, ab, err)
	}

	if _, err := SetDigest(nil); err == nil {
		t.Fatal("expected error for empty set")
	}
}

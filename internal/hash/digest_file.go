package hash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// FileDigest pins one suite or fixture file a run was built from.
type FileDigest struct {
	Path   string `json:"path"`
	Digest string `json:"digest"`
	Size   int64  `json:"size"`
}

func DigestFile(path string) (FileDigest, error) {
	f, err := os.Open(path)
	if err != nil {
		return FileDigest{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return FileDigest{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return FileDigest{Path: path, Digest: "sha256:" + hex.EncodeToString(h.Sum(nil)), Size: n}, nil
}

// SetDigest identifies a set of files by content. A single file keeps its own
// digest; several are hashed as the ordered list of their digests, so moving
// the set to another directory does not change it.
func SetDigest(files []FileDigest) (string, error) {
	switch len(files) {
	case 0:
		return "", fmt.Errorf("no files to digest")
	case 1:
		return files[0].Digest, nil
	}
	digests := make([]string, len(files))
	for i, f := range files {
		digests[i] = f.Digest
	}
	return Digest(digests)
}

package hash

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

// CanonicalJSON encodes v with sorted object keys and numbers preserved as
// written, so equal values always produce equal bytes.
func CanonicalJSON(v any) ([]byte, error) {
	input, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal for canonicalization: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(input))
	dec.UseNumber()
	var normalized any
	if err := dec.Decode(&normalized); err != nil {
		return nil, fmt.Errorf("decode for canonicalization: %w", err)
	}
	// encoding/json writes map keys in sorted order.
	out, err := json.Marshal(normalized)
	if err != nil {
		return nil, fmt.Errorf("encode canonical form: %w", err)
	}
	return out, nil
}

func Digest(v any) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", err
	}
	return digestBytes(canonical), nil
}

// RecordDigest hashes the extracted content of a record. The record ID and
// extraction timestamp are runtime nonces and are left out.
func RecordDigest(rec types.ExtractionRecord) (string, error) {
	rec.ID = ""
	rec.ExtractedAt = time.Time{}
	return Digest(rec)
}

func digestBytes(b []byte) string {
	sum := sha256.Sum256(b)
	return "sha256:" + hex.EncodeToString(sum[:])
}

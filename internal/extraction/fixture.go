package extraction

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ogulcanaydogan/extraction-acceptance/pkg/schema"
	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

// FixtureDir serves recorded extraction output from a directory. A document
// location maps to <dir>/<base name without extension>.json, so
// "statements/oct.pdf" reads "<dir>/oct.json".
type FixtureDir struct {
	dir   string
	cache *recordCache
	group singleflight.Group
	now   func() time.Time
}

// NewFixtureDir opens dir. Decoded fixtures are kept for cacheTTL; zero
// re-reads the file on every call.
func NewFixtureDir(dir string, cacheTTL time.Duration) (*FixtureDir, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open fixture dir: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("fixture path %s is not a directory", dir)
	}
	return &FixtureDir{dir: dir, cache: newRecordCache(cacheTTL), now: time.Now}, nil
}

func (f *FixtureDir) Func() Func { return f.Extract }

func (f *FixtureDir) Path(location string) string {
	base := filepath.Base(filepath.FromSlash(location))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(f.dir, base+".json")
}

func (f *FixtureDir) Extract(ctx context.Context, location string) (*types.ExtractionRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := f.Path(location)
	if rec, ok := f.cache.get(path, f.now()); ok {
		return f.finish(rec, location), nil
	}
	v, err, _ := f.group.Do(path, func() (any, error) {
		rec, err := LoadRecord(path)
		if err != nil {
			return nil, err
		}
		f.cache.put(path, rec, f.now())
		return rec, nil
	})
	if err != nil {
		return nil, err
	}
	return f.finish(v.(types.ExtractionRecord), location), nil
}

func (f *FixtureDir) finish(rec types.ExtractionRecord, location string) *types.ExtractionRecord {
	out := cloneRecord(rec)
	if out.SourceDocument == "" {
		out.SourceDocument = location
	}
	return out
}

// LoadRecord reads a recorded extraction document and checks it against the
// extraction-record schema before decoding.
func LoadRecord(path string) (types.ExtractionRecord, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return types.ExtractionRecord{}, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return types.ExtractionRecord{}, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	violations, err := schema.ValidateRecord(doc)
	if err != nil {
		return types.ExtractionRecord{}, err
	}
	if len(violations) > 0 {
		return types.ExtractionRecord{}, &SchemaError{Path: path, Violations: violations}
	}
	var rec types.ExtractionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return types.ExtractionRecord{}, fmt.Errorf("decode fixture %s: %w", path, err)
	}
	return rec, nil
}

type SchemaError struct {
	Path       string
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s failed schema validation: %s", e.Path, strings.Join(e.Violations, "; "))
}

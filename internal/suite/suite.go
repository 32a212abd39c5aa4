package suite

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ogulcanaydogan/extraction-acceptance/internal/hash"
	"github.com/ogulcanaydogan/extraction-acceptance/pkg/schema"
	"github.com/ogulcanaydogan/extraction-acceptance/pkg/types"
)

// Suite is a set of test cases loaded from one file or a directory of files.
type Suite struct {
	Name   string
	Digest string
	Files  []hash.FileDigest
	Cases  []types.TestCase
}

type file struct {
	Name     string `json:"name"`
	Defaults struct {
		Criteria *types.AcceptanceCriteria `json:"criteria"`
	} `json:"defaults"`
	Cases []fileCase `json:"cases"`
}

type fileCase struct {
	types.TestCase
	Criteria json.RawMessage `json:"criteria"`
}

// SchemaError lists the schema violations of one suite file.
type SchemaError struct {
	Path       string
	Violations []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("suite %s failed schema validation: %s", e.Path, strings.Join(e.Violations, "; "))
}

// Load reads a suite file, or every .yaml, .yml and .json file in a
// directory in name order. Case IDs must be unique across the whole suite.
func Load(source string) (Suite, error) {
	fi, err := os.Stat(source)
	if err != nil {
		return Suite{}, fmt.Errorf("open suite: %w", err)
	}
	paths := []string{source}
	if fi.IsDir() {
		paths, err = suiteFiles(source)
		if err != nil {
			return Suite{}, err
		}
		if len(paths) == 0 {
			return Suite{}, fmt.Errorf("no suite files in %s", source)
		}
	}

	s := Suite{Files: make([]hash.FileDigest, 0, len(paths))}
	seen := map[string]string{}
	for _, p := range paths {
		name, cases, err := loadFile(p)
		if err != nil {
			return Suite{}, err
		}
		for _, tc := range cases {
			if prev, dup := seen[tc.ID]; dup {
				return Suite{}, fmt.Errorf("duplicate test case id %q in %s (first defined in %s)", tc.ID, p, prev)
			}
			seen[tc.ID] = p
		}
		s.Cases = append(s.Cases, cases...)
		if s.Name == "" {
			s.Name = name
		}
		fd, err := hash.DigestFile(p)
		if err != nil {
			return Suite{}, err
		}
		s.Files = append(s.Files, fd)
	}

	if s.Digest, err = hash.SetDigest(s.Files); err != nil {
		return Suite{}, err
	}
	if fi.IsDir() || s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	}
	return s, nil
}

func suiteFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read suite dir %s: %w", dir, err)
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yaml", ".yml", ".json":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(paths)
	return paths, nil
}

func loadFile(path string) (string, []types.TestCase, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("read suite %s: %w", path, err)
	}
	// YAML is a superset of the JSON suites accept.
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return "", nil, fmt.Errorf("parse suite %s: %w", path, err)
	}
	violations, err := schema.ValidateSuite(doc)
	if err != nil {
		return "", nil, err
	}
	if len(violations) > 0 {
		return "", nil, &SchemaError{Path: path, Violations: violations}
	}

	normalized, err := json.Marshal(doc)
	if err != nil {
		return "", nil, fmt.Errorf("normalize suite %s: %w", path, err)
	}
	var f file
	if err := json.Unmarshal(normalized, &f); err != nil {
		return "", nil, fmt.Errorf("decode suite %s: %w", path, err)
	}

	cases := make([]types.TestCase, 0, len(f.Cases))
	for _, fc := range f.Cases {
		tc := fc.TestCase
		tc.Criteria, err = mergeCriteria(f.Defaults.Criteria, fc.Criteria)
		if err != nil {
			return "", nil, fmt.Errorf("decode criteria for %s in %s: %w", tc.ID, path, err)
		}
		if tc.Name == "" {
			tc.Name = tc.ID
		}
		cases = append(cases, tc)
	}
	return f.Name, cases, nil
}

// mergeCriteria overlays the keys a case sets on the suite defaults.
func mergeCriteria(defaults *types.AcceptanceCriteria, override json.RawMessage) (types.AcceptanceCriteria, error) {
	var c types.AcceptanceCriteria
	if defaults != nil {
		c = *defaults
		c.RequiredFields = append([]string(nil), defaults.RequiredFields...)
	}
	if len(override) == 0 || string(override) == "null" {
		return c, nil
	}
	if err := json.Unmarshal(override, &c); err != nil {
		return types.AcceptanceCriteria{}, err
	}
	return c, nil
}

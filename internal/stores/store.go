// Package stores implements JSON-file persistence for review sessions and
// plan comments, laid out as one directory per feature:
//
//	<root>/<feature>/plan.md
//	<root>/<feature>/comments.json
//	<root>/<feature>/approved
//	<root>/<feature>/feature.json
//	<root>/<feature>/reviews/index.json
//	<root>/<feature>/reviews/review-<id>.json
//
// Every mutation is a whole-document read-modify-write with no locking
// across processes; the stores target single-writer usage.
package stores

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

const (
	planFileName     = "plan.md"
	commentsFileName = "comments.json"
	approvedFileName = "approved"
	featureFileName  = "feature.json"
	reviewsDirName   = "reviews"
	indexFileName    = "index.json"

	reviewFilePrefix = "review-"
	reviewFileSuffix = ".json"
)

func reviewFileName(id string) string {
	return reviewFilePrefix + id + reviewFileSuffix
}

// readJSON decodes the file at path into dest. The caller distinguishes a
// missing file via os.IsNotExist.
func readJSON(path string, dest any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, dest)
}

// writeJSON writes src as indented JSON atomically (tmp file + rename),
// creating parent directories as needed.
func writeJSON(path string, src any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(src, "", "  ")
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}

// listFeatures returns the feature directory names under root, skipping
// names that match any ignore glob. A missing root yields no features.
func listFeatures(root string, ignore []string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var features []string
	for _, entry := range entries {
		if !entry.IsDir() || matchesAny(ignore, entry.Name()) {
			continue
		}
		features = append(features, entry.Name())
	}

	return features, nil
}

func matchesAny(patterns []string, name string) bool {
	for _, pattern := range patterns {
		if ok, err := doublestar.Match(pattern, name); err == nil && ok {
			return true
		}
	}
	return false
}

// listReviewFiles returns the session file names in a feature's reviews
// directory.
func listReviewFiles(reviewsDir string) ([]string, error) {
	entries, err := os.ReadDir(reviewsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, reviewFilePrefix) || !strings.HasSuffix(name, reviewFileSuffix) {
			continue
		}
		names = append(names, name)
	}

	return names, nil
}

package migrate

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

const (
	upMarker   = "-- +goose Up"
	downMarker = "-- +goose Down"
)

var fileNameRe = regexp.MustCompile(`^(\d{14})_([a-z0-9_]+)\.sql$`)

// File is one SQL migration on disk.
type File struct {
	Version int64
	Name    string
	Path    string
}

// ScanDir lists the SQL migrations in dir ordered by version. It fails on
// malformed filenames, repeated versions, and files without both goose
// sections in Up, Down order.
func ScanDir(dir string) ([]File, error) {
	if dir == "" {
		return nil, fmt.Errorf("dir is required")
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %q: %w", dir, err)
	}

	var files []File
	byVersion := make(map[int64]string)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".sql") {
			continue
		}
		f, err := parseFile(dir, e.Name())
		if err != nil {
			return nil, err
		}
		if prev, dup := byVersion[f.Version]; dup {
			return nil, fmt.Errorf("duplicate migration version %d in %q and %q", f.Version, prev, e.Name())
		}
		byVersion[f.Version] = e.Name()
		if err := checkSections(f.Path); err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	sort.Slice(files, func(i, j int) bool { return files[i].Version < files[j].Version })
	return files, nil
}

// ValidateDir is ScanDir plus the requirement that at least one migration exists.
func ValidateDir(dir string) error {
	files, err := ScanDir(dir)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no migrations found in %q", dir)
	}
	return nil
}

func parseFile(dir, base string) (File, error) {
	m := fileNameRe.FindStringSubmatch(base)
	if m == nil {
		return File{}, fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", base)
	}
	version, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return File{}, fmt.Errorf("invalid migration version in %q: %w", base, err)
	}
	return File{Version: version, Name: m[2], Path: filepath.Join(dir, base)}, nil
}

func checkSections(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read file %q: %w", path, err)
	}
	body := string(raw)
	base := filepath.Base(path)
	up, down := strings.Index(body, upMarker), strings.Index(body, downMarker)
	switch {
	case up < 0:
		return fmt.Errorf("migration %q missing %q", base, upMarker)
	case down < 0:
		return fmt.Errorf("migration %q missing %q", base, downMarker)
	case down < up:
		return fmt.Errorf("migration %q declares Down before Up", base)
	}
	return nil
}

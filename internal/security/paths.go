// Package security guards the file names roiqp derives from sequence names,
// which come from user-supplied paths.
package security

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/banshee-data/roiqp/internal/errors"
)

// maxNameLen bounds the sanitized part of a file name.
const maxNameLen = 128

// SanitizeFilename maps s to ASCII letters, digits, dot, underscore and
// dash. Other runs of characters become one underscore, leading and
// trailing dots and underscores are trimmed and an empty result is
// "unknown".
func SanitizeFilename(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxNameLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case !lastUnderscore:
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}

// OutputPath returns dir/<part1>_<part2>..._<partN><ext> with every part
// sanitized, and fails if the result would resolve outside dir.
func OutputPath(dir, ext string, parts ...string) (string, error) {
	clean := make([]string, len(parts))
	for i, p := range parts {
		clean[i] = SanitizeFilename(p)
	}
	path := filepath.Join(dir, strings.Join(clean, "_")+ext)
	if err := WithinDirectory(path, dir); err != nil {
		return "", err
	}
	return path, nil
}

// WithinDirectory fails when path, after resolving symlinks of its deepest
// existing ancestor, is not inside dir.
func WithinDirectory(path, dir string) error {
	canonicalPath, err := canonical(path)
	if err != nil {
		return err
	}
	canonicalDir, err := canonical(dir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(canonicalDir, canonicalPath)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return errors.Newf("path %s escapes %s", path, dir)
	}
	return nil
}

// canonical makes path absolute and resolves symlinks in the longest
// existing prefix, so paths that do not exist yet can still be checked.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", errors.Wrapf(err, "resolve %s", path)
	}
	rest := ""
	for cur := abs; ; {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(resolved, rest), nil
		} else if !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "resolve %s", path)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(cur), rest)
		cur = parent
	}
}

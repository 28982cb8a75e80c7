package vault

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/dmitrijs2005/homevault/internal/common"
)

// userRoot returns <storage root>/<username>. Usernames come from the
// credential store, but they still end up in a path so anything that is
// not a single plain element is refused.
func (v *Vault) userRoot(username string) (string, error) {
	if username == "" || username == "." || username == ".." ||
		strings.ContainsAny(username, `/\`) || strings.ContainsRune(username, 0) {
		return "", fmt.Errorf("username %q: %w", username, common.ErrForbidden)
	}
	return filepath.Join(v.root, username), nil
}

// resolve joins rel onto root and checks that the result stays inside root,
// first lexically and then again after symlinks in the existing part of the
// path are resolved. It returns the joined (not the canonical) path.
func resolve(root, rel string) (string, error) {
	if strings.ContainsRune(rel, 0) {
		return "", fmt.Errorf("path %q: %w", rel, common.ErrForbidden)
	}

	slashed := filepath.ToSlash(rel)
	if strings.HasPrefix(slashed, "/") || filepath.IsAbs(rel) || filepath.VolumeName(rel) != "" {
		return "", fmt.Errorf("absolute path %q: %w", rel, common.ErrForbidden)
	}

	joined := filepath.Join(root, filepath.FromSlash(slashed))
	if !within(root, joined) {
		return "", fmt.Errorf("path %q: %w", rel, common.ErrForbidden)
	}

	canonRoot, err := canonicalize(root)
	if err != nil {
		return "", fmt.Errorf("resolve user root: %w", err)
	}
	canonPath, err := canonicalize(joined)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", rel, err)
	}
	if !within(canonRoot, canonPath) {
		return "", fmt.Errorf("path %q resolves outside user root: %w", rel, common.ErrForbidden)
	}

	return joined, nil
}

// canonicalize resolves symlinks in the longest existing prefix of p and
// appends the remaining, not yet existing, elements unchanged. p must be
// absolute and clean.
func canonicalize(p string) (string, error) {
	var missing []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			for i := len(missing) - 1; i >= 0; i-- {
				resolved = filepath.Join(resolved, missing[i])
			}
			return resolved, nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !errors.Is(err, syscall.ENOTDIR) {
			return "", err
		}

		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		missing = append(missing, filepath.Base(cur))
		cur = parent
	}
}

// within reports whether p equals root or lies beneath it.
func within(root, p string) bool {
	if p == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	return strings.HasPrefix(p, prefix)
}

// strictlyWithin is within without the equality case.
func strictlyWithin(root, p string) bool {
	return p != root && within(root, p)
}

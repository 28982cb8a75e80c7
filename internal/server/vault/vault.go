// Package vault performs every filesystem operation on behalf of a user,
// confined to <storage root>/<username>.
//
// Each operation re-checks containment of the paths it was given right
// before touching the filesystem; no earlier check is trusted. No locking
// is done across operations, so concurrent mutations of the same file race
// at the filesystem level and the last one wins.
package vault

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/homevault/internal/common"
	"github.com/dmitrijs2005/homevault/internal/filex"
	"github.com/dmitrijs2005/homevault/internal/logging"
)

// MaxUploadSize caps a single upload. Bytes past the cap are not stored.
const MaxUploadSize int64 = 1 << 40

const (
	dirPerm  fs.FileMode = 0o770
	filePerm fs.FileMode = 0o660
)

// DeleteOutcome tells a caller what Delete did.
type DeleteOutcome int

const (
	// Trashed means the file was moved into the user's trash.
	Trashed DeleteOutcome = iota + 1
	// Purged means a file already in the trash was removed for good.
	Purged
)

func (o DeleteOutcome) String() string {
	switch o {
	case Trashed:
		return "trashed"
	case Purged:
		return "purged"
	default:
		return "unknown"
	}
}

type Vault struct {
	root   string
	logger logging.Logger

	// remove is a seam for tests that need a failing purge.
	remove func(name string) error
}

// New returns a Vault over storageRoot, creating the directory if needed.
func New(storageRoot string, logger logging.Logger) (*Vault, error) {
	root, err := filex.EnsureDir(storageRoot)
	if err != nil {
		return nil, fmt.Errorf("storage root: %w", err)
	}

	// Symlinks in the storage root itself are fine; containment is checked
	// against the resolved user root.
	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	return &Vault{
		root:   root,
		logger: logger.With("module", "vault"),
		remove: os.Remove,
	}, nil
}

// Root returns the absolute storage root.
func (v *Vault) Root() string {
	return v.root
}

// List returns the slash-separated paths, relative to the user root, of
// every regular file the user owns outside the trash. The order is that of
// the directory walk. A user who never uploaded anything gets ErrNotFound.
func (v *Vault) List(ctx context.Context, username string) ([]string, error) {
	root, err := v.userRoot(username)
	if err != nil {
		return nil, err
	}
	if err := requireDir(root); err != nil {
		return nil, err
	}

	trash := filepath.Join(root, common.TrashDirName)
	return walkFiles(ctx, root, root, trash)
}

// ListTrash returns the paths of trashed files, each prefixed with
// "trash/", so that they can be passed straight back to Delete.
func (v *Vault) ListTrash(ctx context.Context, username string) ([]string, error) {
	root, err := v.userRoot(username)
	if err != nil {
		return nil, err
	}
	if err := requireDir(root); err != nil {
		return nil, err
	}

	trash := filepath.Join(root, common.TrashDirName)
	if _, err := os.Stat(trash); errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	return walkFiles(ctx, root, trash, "")
}

// Open opens a file of the user for reading. Escaping paths and missing
// files both come back as ErrNotFound so a caller cannot probe for the
// existence of files outside its root.
func (v *Vault) Open(ctx context.Context, username, rel string) (*os.File, error) {
	root, err := v.userRoot(username)
	if err != nil {
		return nil, err
	}

	target, err := resolve(root, rel)
	if err != nil {
		v.logger.Warn(ctx, "rejected read", "user", username, "path", rel, "error", err)
		return nil, fmt.Errorf("open %q: %w", rel, common.ErrNotFound)
	}

	f, err := os.Open(target)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open %q: %w", rel, common.ErrNotFound)
		}
		return nil, fmt.Errorf("open %q: %w", rel, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %q: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("open %q: %w", rel, common.ErrNotFound)
	}

	return f, nil
}

// Write stores r under the sanitized form of name at the top of the user
// root, replacing any file of that name. It returns the name actually used.
// Failing to create the user root is reported as ErrInternal.
func (v *Vault) Write(ctx context.Context, username, name string, r io.Reader) (string, error) {
	root, err := v.userRoot(username)
	if err != nil {
		return "", err
	}

	clean := Sanitize(name)
	if clean == "" || clean == "." || clean == ".." || clean == common.TrashDirName {
		return "", fmt.Errorf("file name %q: %w", name, common.ErrInvalidName)
	}

	if err := os.MkdirAll(root, dirPerm); err != nil {
		return "", fmt.Errorf("%w: create user root: %v", common.ErrInternal, err)
	}

	target, err := resolve(root, clean)
	if err != nil {
		return "", err
	}

	f, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, filePerm)
	if err != nil {
		return "", fmt.Errorf("create %q: %w", clean, err)
	}

	n, err := io.Copy(f, &ctxReader{ctx: ctx, r: io.LimitReader(r, MaxUploadSize)})
	if err != nil {
		f.Close()
		return "", fmt.Errorf("write %q: %w", clean, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %q: %w", clean, err)
	}

	v.logger.Info(ctx, "file stored", "user", username, "name", clean, "bytes", n)
	return clean, nil
}

// Delete moves a file into the user's trash, or removes it for good if it
// is already there. A name clash inside the trash is resolved by adding a
// numeric suffix, so nothing in the trash is ever overwritten.
//
// Errors: ErrForbidden for an escaping path, ErrNotFound for a missing
// file, ErrNotAFile for a directory, ErrInternal if the trash directory
// cannot be created. If the move into the trash fails the file stays where
// it was.
func (v *Vault) Delete(ctx context.Context, username, rel string) (DeleteOutcome, error) {
	root, err := v.userRoot(username)
	if err != nil {
		return 0, err
	}

	target, err := resolve(root, rel)
	if err != nil {
		return 0, err
	}
	if err := requireFile(target, rel); err != nil {
		return 0, err
	}

	trash := filepath.Join(root, common.TrashDirName)

	if strictlyWithin(trash, target) {
		if err := v.remove(target); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return 0, fmt.Errorf("delete %q: %w", rel, common.ErrNotFound)
			}
			return 0, fmt.Errorf("%w: %q: %v", common.ErrPurgeFailed, rel, err)
		}
		v.logger.Info(ctx, "file purged", "user", username, "path", rel)
		v.prune(ctx, trash, filepath.Dir(target))
		return Purged, nil
	}

	if err := os.MkdirAll(trash, dirPerm); err != nil {
		return 0, fmt.Errorf("%w: create trash: %v", common.ErrInternal, err)
	}

	dest, err := freeName(trash, filepath.Base(target))
	if err != nil {
		return 0, fmt.Errorf("pick trash name for %q: %w", rel, err)
	}

	// The trash may have been swapped for a symlink since the check above.
	if _, err := resolve(root, filepath.Join(common.TrashDirName, filepath.Base(dest))); err != nil {
		return 0, err
	}

	if err := os.Rename(target, dest); err != nil {
		return 0, fmt.Errorf("move %q to trash: %w", rel, err)
	}

	v.logger.Info(ctx, "file trashed", "user", username, "path", rel, "trash_name", filepath.Base(dest))
	v.prune(ctx, root, filepath.Dir(target))
	return Trashed, nil
}

// Rename gives a file a new name inside the same directory. It never
// overwrites: an existing destination yields ErrConflict and nothing
// changes on disk.
func (v *Vault) Rename(ctx context.Context, username, rel, newName string) error {
	root, err := v.userRoot(username)
	if err != nil {
		return err
	}
	if newName == "" {
		return fmt.Errorf("new name: %w", common.ErrInvalidName)
	}

	src, err := resolve(root, rel)
	if err != nil {
		return err
	}

	relDest := filepath.Join(filepath.Dir(filepath.FromSlash(rel)), filepath.FromSlash(newName))
	dest, err := resolve(root, relDest)
	if err != nil {
		return err
	}
	if filepath.Dir(dest) != filepath.Dir(src) {
		return fmt.Errorf("new name %q is not a single path element: %w", newName, common.ErrInvalidName)
	}

	info, err := os.Lstat(src)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("rename %q: %w", rel, common.ErrNotFound)
	}

	if _, err := os.Lstat(dest); err == nil {
		return fmt.Errorf("rename %q to %q: %w", rel, newName, common.ErrConflict)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("stat %q: %w", newName, err)
	}

	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("rename %q: %w", rel, err)
	}

	v.logger.Info(ctx, "file renamed", "user", username, "path", rel, "new_name", newName)
	return nil
}

// Move relocates a file anywhere inside the user root, creating missing
// destination directories. An existing destination file is replaced, as
// os.Rename does. Empty directories left behind at the source are pruned.
// Failing to create directories or to rename is reported as ErrInternal.
func (v *Vault) Move(ctx context.Context, username, oldRel, newRel string) error {
	root, err := v.userRoot(username)
	if err != nil {
		return err
	}

	src, err := resolve(root, oldRel)
	if err != nil {
		return err
	}
	dest, err := resolve(root, newRel)
	if err != nil {
		return err
	}
	if dest == root {
		return fmt.Errorf("move %q onto user root: %w", oldRel, common.ErrInvalidName)
	}

	info, err := os.Lstat(src)
	if err != nil || !info.Mode().IsRegular() {
		return fmt.Errorf("move %q: %w", oldRel, common.ErrNotFound)
	}

	if err := os.MkdirAll(filepath.Dir(dest), dirPerm); err != nil {
		return fmt.Errorf("%w: create %q: %v", common.ErrInternal, filepath.Dir(newRel), err)
	}

	// Directory creation may have followed a symlink planted meanwhile.
	if _, err := resolve(root, newRel); err != nil {
		return err
	}

	if err := os.Rename(src, dest); err != nil {
		return fmt.Errorf("%w: move %q to %q: %v", common.ErrInternal, oldRel, newRel, err)
	}

	v.logger.Info(ctx, "file moved", "user", username, "from", oldRel, "to", newRel)
	v.prune(ctx, root, filepath.Dir(src))
	return nil
}

// prune removes dir and then each of its ancestors while they are empty,
// stopping at the first non-empty one. The user root is never removed.
// Failures are logged only.
func (v *Vault) prune(ctx context.Context, root, dir string) {
	for strictlyWithin(root, dir) {
		empty, err := filex.IsDirEmpty(dir)
		if err != nil {
			v.logger.Warn(ctx, "prune: read dir", "dir", dir, "error", err)
			return
		}
		if !empty {
			return
		}
		if err := os.Remove(dir); err != nil {
			v.logger.Warn(ctx, "prune: remove dir", "dir", dir, "error", err)
			return
		}
		v.logger.Debug(ctx, "pruned empty directory", "dir", dir)
		dir = filepath.Dir(dir)
	}
}

// freeName returns dir/base if nothing exists there, otherwise the first
// free dir/<stem>-N<ext>.
func freeName(dir, base string) (string, error) {
	candidate := filepath.Join(dir, base)
	if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
		return candidate, nil
	} else if err != nil {
		return "", err
	}

	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	if stem == "" {
		stem, ext = base, ""
	}

	for i := 1; ; i++ {
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
		_, err := os.Lstat(candidate)
		if errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
		if err != nil {
			return "", err
		}
	}
}

func requireDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("user root: %w", common.ErrNotFound)
		}
		return fmt.Errorf("user root: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("user root: %w", common.ErrNotFound)
	}
	return nil
}

func requireFile(p, rel string) error {
	info, err := os.Lstat(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%q: %w", rel, common.ErrNotFound)
		}
		return fmt.Errorf("stat %q: %w", rel, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%q: %w", rel, common.ErrNotAFile)
	}
	return nil
}

// walkFiles collects regular files under dir as slash paths relative to
// root, skipping the directory skip if it is non-empty.
func walkFiles(ctx context.Context, root, dir, skip string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() {
			if skip != "" && p == skip {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	return files, nil
}

// ctxReader stops a copy once the request context is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

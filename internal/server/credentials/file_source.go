package credentials

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/homevault/internal/filex"
)

const fieldSeparator = "|"

// FileSource reads records from a flat text file with one
// "username|password_hash" line per user. Lines that do not split into
// exactly two fields are skipped.
type FileSource struct {
	path string
}

// NewFileSource returns a FileSource for path, creating an empty file there
// if none exists so a fresh install starts with no users instead of failing.
func NewFileSource(path string) (*FileSource, error) {
	if err := filex.EnsureFile(path); err != nil {
		return nil, fmt.Errorf("credentials file: %w", err)
	}
	return &FileSource{path: path}, nil
}

func (s *FileSource) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		parts := strings.Split(line, fieldSeparator)
		if len(parts) != 2 {
			continue
		}
		records = append(records, Record{Username: parts[0], PasswordHash: parts[1]})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}

	return records, nil
}

// Add stores a record, replacing every existing line for username. The file
// is rewritten to a temporary file in the same directory and renamed over
// the original, so readers see either the old or the new contents.
func (s *FileSource) Add(ctx context.Context, username, passwordHash string) error {
	if err := validateRecord(username, passwordHash); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	current, err := os.ReadFile(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("read %s: %w", s.path, err)
	}

	var buf bytes.Buffer
	for _, line := range strings.Split(string(current), "\n") {
		line = strings.TrimRight(line, "\r")
		if line == "" {
			continue
		}
		if name, _, _ := strings.Cut(line, fieldSeparator); name == username {
			continue
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}
	fmt.Fprintf(&buf, "%s%s%s\n", username, fieldSeparator, passwordHash)

	return s.replace(buf.Bytes())
}

func (s *FileSource) replace(data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(s.path), "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", s.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("chmod %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace %s: %w", s.path, err)
	}
	return nil
}

func validateRecord(username, passwordHash string) error {
	if username == "" || strings.ContainsAny(username, fieldSeparator+"\n\r/\\") || username == "." || username == ".." {
		return fmt.Errorf("invalid username %q", username)
	}
	if passwordHash == "" || strings.ContainsAny(passwordHash, fieldSeparator+"\n\r") {
		return fmt.Errorf("invalid password hash")
	}
	return nil
}

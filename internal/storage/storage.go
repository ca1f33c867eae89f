// Package storage keeps uploaded spreadsheets and generated result files on
// local disk until they age out.
package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"trolleymatch/domain/core"
	"trolleymatch/internal/errors"
)

const (
	uploadSeparator = "__"
	copyBufferSize  = 64 * 1024

	fallbackUploadName = "upload"
)

// Uploads stores uploaded spreadsheets as <jobID>__<sanitized name>
type Uploads struct {
	dir string
}

// NewUploads creates upload storage rooted at dir
func NewUploads(dir string) *Uploads {
	return &Uploads{dir: dir}
}

// Dir returns the storage directory
func (u *Uploads) Dir() string { return u.dir }

// Save copies r into the upload directory and returns the stored path and
// sanitized file name. The extension of filename always survives sanitizing.
func (u *Uploads) Save(ctx context.Context, jobID core.JobID, filename string, r io.Reader) (path, name string, err error) {
	if err := ctx.Err(); err != nil {
		return "", "", err
	}
	if err := os.MkdirAll(u.dir, 0755); err != nil {
		return "", "", errors.Wrap(err, "failed to create upload directory")
	}

	name = storedName(filename)
	if name == "" {
		return "", "", errors.InvalidInput("No selected file")
	}
	path = filepath.Join(u.dir, jobID.String()+uploadSeparator+name)

	dest, err := os.Create(path)
	if err != nil {
		return "", "", errors.Wrap(err, "failed to create upload file")
	}
	defer dest.Close()

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(dest, r, buf); err != nil {
		os.Remove(path)
		return "", "", errors.Wrap(err, "failed to save upload")
	}
	return path, name, nil
}

// storedName sanitizes filename and falls back to "upload" plus the original
// extension when sanitizing loses it, e.g. for names without ASCII letters.
func storedName(filename string) string {
	name := SecureFilename(filename)
	ext := filepath.Ext(strings.TrimSpace(filename))
	if ext == "" || ext == "." || unsafeFilenameChars.MatchString(ext[1:]) {
		return name
	}
	if strings.HasSuffix(strings.ToLower(name), strings.ToLower(ext)) && len(name) > len(ext) {
		return name
	}
	return fallbackUploadName + ext
}

// Find returns the stored path and original (sanitized) file name for a job
func (u *Uploads) Find(jobID core.JobID) (path, filename string, err error) {
	prefix := jobID.String() + uploadSeparator
	entries, err := os.ReadDir(u.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return "", "", errors.NotFound("Uploaded file")
		}
		return "", "", errors.Wrap(err, "failed to list uploads")
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		return filepath.Join(u.dir, entry.Name()), strings.TrimPrefix(entry.Name(), prefix), nil
	}
	return "", "", errors.NotFound("Uploaded file")
}

// Results stores generated CSV files
type Results struct {
	dir string
}

// NewResults creates result storage rooted at dir
func NewResults(dir string) *Results {
	return &Results{dir: dir}
}

// Dir returns the storage directory
func (r *Results) Dir() string { return r.dir }

// Create opens a new result file named after now and returns its name
func (r *Results) Create(now time.Time) (string, io.WriteCloser, error) {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return "", nil, errors.Wrap(err, "failed to create results directory")
	}

	name := fmt.Sprintf("trolley_results_%s_%s.csv", now.Format("20060102_150405"), core.ShortSuffix())
	f, err := os.OpenFile(filepath.Join(r.dir, name), os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return "", nil, errors.Wrap(err, "failed to create results file")
	}
	return name, f, nil
}

// Path resolves a result name to a file on disk. Names that could escape the
// results directory are reported as not found.
func (r *Results) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") ||
		strings.ContainsAny(name, `/\`) {
		return "", errors.NotFound("File")
	}

	path := filepath.Join(r.dir, name)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return "", errors.NotFound("File")
	}
	return path, nil
}

// Sweep removes regular files in dir last modified before now-maxAge and
// returns how many were removed. A missing directory is not an error.
func Sweep(dir string, maxAge time.Duration, now time.Time) (int, error) {
	if maxAge <= 0 {
		return 0, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, errors.Wrap(err, "failed to list directory for sweep")
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, entry.Name())); err == nil {
			removed++
		}
	}
	return removed, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_.-]`)

// SecureFilename reduces a client supplied name to a flat ASCII file name.
// Accents are dropped, separators and whitespace become underscores and
// leading dots or underscores are trimmed. The result may be empty.
func SecureFilename(name string) string {
	decomposed := norm.NFKD.String(name)
	var b strings.Builder
	for _, r := range decomposed {
		if r > unicode.MaxASCII || unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	s := b.String()

	s = strings.NewReplacer("/", " ", `\`, " ").Replace(s)
	s = strings.Join(strings.Fields(s), "_")
	s = unsafeFilenameChars.ReplaceAllString(s, "")
	return strings.Trim(s, "._")
}

package descriptor

import (
	"archive/tar"
	"compress/bzip2"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var archiveSuffixes = []string{".tar", ".tar.bz2", ".tar.gz", ".tgz", ".tar.zst"}

// IsArchive reports whether name looks like a descriptor tarball.
func IsArchive(name string) bool {
	for _, s := range archiveSuffixes {
		if strings.HasSuffix(name, s) {
			return true
		}
	}
	return false
}

// IsBulkImport reports whether dir holds tarballs rather than loose
// descriptor files. The first file found in lexical order decides.
func IsBulkImport(dir string) (bool, error) {
	bulk := false
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		bulk = IsArchive(d.Name())
		return fs.SkipAll
	})
	if err != nil {
		return false, fmt.Errorf("error inspecting input dir %s: %w", dir, err)
	}
	return bulk, nil
}

// Handler is called for every decoded descriptor together with the name
// of the file or archive member it came from.
type Handler func(source string, d Descriptor) error

// Reader walks directories of descriptor files and tarballs.
type Reader struct {
	// Exclude, if set, skips files it already holds and records every
	// file the reader finishes.
	Exclude *History
}

// Walk decodes every descriptor below dir in lexical order. Files that
// cannot be decoded are logged and skipped; errors from fn abort the walk.
func (r *Reader) Walk(dir string, fn Handler) error {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		slog.Debug("descriptor directory missing", "dir", dir)
		return nil
	}
	slog.Debug("reading descriptors", "dir", dir)

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error walking %s: %w", path, err)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return fmt.Errorf("error reading file info: %w", err)
		}
		mtime := info.ModTime().UnixMilli()
		if r.Exclude != nil && r.Exclude.Seen(path, mtime) {
			return nil
		}
		if err := r.readFile(path, fn); err != nil {
			return err
		}
		if r.Exclude != nil {
			r.Exclude.Mark(path, mtime)
		}
		return nil
	})
}

func (r *Reader) readFile(path string, fn Handler) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("error opening descriptor file: %w", err)
	}
	defer f.Close()

	if IsArchive(path) {
		return r.readArchive(path, f, fn)
	}
	data, err := io.ReadAll(f)
	if err != nil {
		return fmt.Errorf("error reading descriptor file: %w", err)
	}
	return decode(path, data, fn)
}

func (r *Reader) readArchive(path string, f io.Reader, fn Handler) error {
	tr, closeFn, err := openArchive(path, f)
	if err != nil {
		slog.Warn("skipping unreadable archive", "file", path, "error", err)
		return nil
	}
	defer closeFn()

	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			slog.Warn("archive truncated", "file", path, "error", err)
			return nil
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		data, err := io.ReadAll(tr)
		if err != nil {
			slog.Warn("archive truncated", "file", path, "member", hdr.Name, "error", err)
			return nil
		}
		if err := decode(path+"/"+hdr.Name, data, fn); err != nil {
			return err
		}
	}
}

func openArchive(name string, f io.Reader) (*tar.Reader, func(), error) {
	switch {
	case strings.HasSuffix(name, ".tar.bz2"):
		return tar.NewReader(bzip2.NewReader(f)), func() {}, nil
	case strings.HasSuffix(name, ".tar.gz"), strings.HasSuffix(name, ".tgz"):
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening gzip stream: %w", err)
		}
		return tar.NewReader(zr), func() { zr.Close() }, nil
	case strings.HasSuffix(name, ".tar.zst"):
		zr, err := zstd.NewReader(f)
		if err != nil {
			return nil, nil, fmt.Errorf("error opening zstd stream: %w", err)
		}
		return tar.NewReader(zr), zr.Close, nil
	}
	return tar.NewReader(f), func() {}, nil
}

func decode(source string, data []byte, fn Handler) error {
	descs, err := Parse(data)
	if err != nil {
		slog.Warn("skipping undecodable descriptor", "file", source, "error", err)
		return nil
	}
	for _, d := range descs {
		if err := fn(source, d); err != nil {
			return err
		}
	}
	return nil
}

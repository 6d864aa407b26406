package processor

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lensferno/imgtool/internal/errors"
)

// OutputPath derives the output file for input inside outDir.
//
// The prefix goes in front of the whole file name. The suffix goes between
// stem and extension, split at the last dot; names without an extension
// (including dotfiles like ".env") get the suffix appended.
func OutputPath(input, outDir, prefix, suffix string) string {
	name := prefix + filepath.Base(input)
	if suffix != "" {
		if stem, ext, ok := splitExt(name); ok {
			name = stem + suffix + "." + ext
		} else {
			name += suffix
		}
	}
	return filepath.Join(outDir, name)
}

func splitExt(name string) (stem, ext string, ok bool) {
	idx := strings.LastIndexByte(name, '.')
	if idx <= 0 {
		return name, "", false
	}
	return name[:idx], name[idx+1:], true
}

// Enumerate lists the files to process: path itself when it is a file, or
// every regular file directly inside it when it is a directory, in directory
// listing order. Symlinks are followed; entries that cannot be stat'ed are skipped.
func Enumerate(path string) ([]string, error) {
	info, err := statInput(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.ErrIO, "list directory %s", path).WithDetail("path", path)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		full := filepath.Join(path, entry.Name())
		fi, err := os.Stat(full)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		files = append(files, full)
	}
	return files, nil
}

func statInput(path string) (os.FileInfo, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info, nil
	}
	if os.IsNotExist(err) {
		return nil, errors.Wrapf(err, errors.ErrNotFound, "file or dir does not exist: %s", path).WithDetail("path", path)
	}
	return nil, errors.Wrapf(err, errors.ErrIO, "stat %s", path).WithDetail("path", path)
}

// replaceFile moves tmpPath over destPath, removing destPath first when a
// plain rename is refused.
func replaceFile(tmpPath, destPath string) error {
	if err := os.Rename(tmpPath, destPath); err == nil {
		return nil
	}
	if err := os.Remove(destPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Rename(tmpPath, destPath)
}

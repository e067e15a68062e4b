// Package fileutil walks a directory tree handing out audio files one at a time.
package fileutil

import (
	"io/fs"
	"iter"
	"path"
	"strings"
)

type File struct {
	Path string // slash separated, relative to the walk root
	Data []byte
}

func (f File) Name() string {
	return path.Base(f.Path)
}

// Walk lazily yields every regular file under fsys for which keep returns true, reading its
// contents only when the consumer asks for it. Hidden files and directories are skipped. A
// file that can't be read is yielded with its error and the walk carries on.
func Walk(fsys fs.FS, keep func(path string) bool) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		_ = fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if !yield(File{Path: p}, err) {
					return fs.SkipAll
				}
				if d != nil && d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if p != "." && strings.HasPrefix(d.Name(), ".") {
				if d.IsDir() {
					return fs.SkipDir
				}
				return nil
			}
			if !d.Type().IsRegular() || (keep != nil && !keep(p)) {
				return nil
			}

			data, err := fs.ReadFile(fsys, p)
			if !yield(File{Path: p, Data: data}, err) {
				return fs.SkipAll
			}
			return nil
		})
	}
}

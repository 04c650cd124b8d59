// Package cookies picks the credentials file handed to yt-dlp.
package cookies

import (
	"math/rand/v2"
	"os"
	"path/filepath"
)

// Source yields a cookie file path, or ok=false to run without one.
type Source interface {
	Next() (path string, ok bool)
}

// DirSource picks a random *.txt file from Dir on every call. A missing
// directory is created and treated as empty.
type DirSource struct {
	Dir string
}

func NewDirSource(dir string) *DirSource {
	return &DirSource{Dir: dir}
}

func (s *DirSource) Next() (string, bool) {
	if _, err := os.Stat(s.Dir); os.IsNotExist(err) {
		_ = os.MkdirAll(s.Dir, 0755)
		return "", false
	}
	files, err := filepath.Glob(filepath.Join(s.Dir, "*.txt"))
	if err != nil || len(files) == 0 {
		return "", false
	}
	return files[rand.IntN(len(files))], true
}

// Static always returns Path; an empty Path means no cookies.
type Static struct {
	Path string
}

func (s Static) Next() (string, bool) {
	return s.Path, s.Path != ""
}

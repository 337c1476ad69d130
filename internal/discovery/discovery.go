// Package discovery finds CUE sheet and audio image pairs under an album
// directory and expands multi-FILE sheets into single-FILE parts.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/cesargomez89/cuesplit/internal/constants"
	"github.com/cesargomez89/cuesplit/internal/cue"
	"github.com/cesargomez89/cuesplit/internal/domain"
	"github.com/cesargomez89/cuesplit/internal/storage"
)

var ErrNotDirectory = errors.New("not a directory")

// Error is a job-fatal discovery failure: the album path is missing,
// unreadable, or not a directory.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("cannot scan %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Drop records a CUE sheet that could not be paired.
type Drop struct {
	CuePath string
	Reason  string
}

// Result is everything discovered under one album directory.
type Result struct {
	Pairs        []domain.Pair
	SplitSets    []domain.SplitCueSet
	Dropped      []Drop
	CoverArtPath string
}

type candidate struct {
	path   string
	data   []byte
	source string
}

// Discover walks albumDir in lexical order and returns its pairs in the
// order their CUE sheets were found.
func Discover(albumDir string) (*Result, error) {
	info, err := os.Stat(albumDir)
	if err != nil {
		return nil, &Error{Path: albumDir, Err: err}
	}
	if !info.IsDir() {
		return nil, &Error{Path: albumDir, Err: ErrNotDirectory}
	}

	var cues, covers []string
	var walkDrops []Drop
	filesByDir := make(map[string][]string)

	err = filepath.WalkDir(albumDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == albumDir {
				return err
			}
			walkDrops = append(walkDrops, Drop{CuePath: path, Reason: err.Error()})
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != albumDir && strings.HasPrefix(d.Name(), constants.ScratchDirPrefix) {
				return filepath.SkipDir
			}
			return nil
		}

		dir := filepath.Dir(path)
		filesByDir[dir] = append(filesByDir[dir], d.Name())

		ext := strings.ToLower(filepath.Ext(d.Name()))
		switch {
		case ext == constants.ExtCUE:
			cues = append(cues, path)
		case hasExt(ext, constants.CoverExtensions):
			covers = append(covers, path)
		}
		return nil
	})
	if err != nil {
		return nil, &Error{Path: albumDir, Err: err}
	}

	res := &Result{CoverArtPath: FindCover(covers), Dropped: walkDrops}

	contents := make(map[string][]byte, len(cues))
	generated := make(map[string]bool)
	for _, path := range cues {
		data, err := os.ReadFile(path)
		if err != nil {
			res.Dropped = append(res.Dropped, Drop{CuePath: path, Reason: fmt.Sprintf("read failed: %v", err)})
			continue
		}
		contents[path] = data
		if n := cue.CountFiles(data); n > 1 {
			for k := 1; k <= n; k++ {
				generated[cue.PartName(path, k)] = true
			}
		}
	}

	var candidates []candidate
	for _, path := range cues {
		data, ok := contents[path]
		if !ok || generated[path] {
			continue
		}

		switch n := cue.CountFiles(data); {
		case n == 0:
			res.Dropped = append(res.Dropped, Drop{CuePath: path, Reason: cue.ErrNoFile.Error()})
		case n == 1:
			candidates = append(candidates, candidate{path: path, data: data})
		default:
			set, parts, drops := expand(path, data, filesByDir[filepath.Dir(path)])
			res.Dropped = append(res.Dropped, drops...)
			if set != nil {
				res.SplitSets = append(res.SplitSets, *set)
				candidates = append(candidates, parts...)
			}
		}
	}

	for _, c := range candidates {
		name, err := cue.FileName(c.data)
		if err != nil {
			res.Dropped = append(res.Dropped, Drop{CuePath: c.path, Reason: err.Error()})
			continue
		}
		dir := filepath.Dir(c.path)
		image, ok := matchFile(name, filesByDir[dir])
		if !ok {
			res.Dropped = append(res.Dropped, Drop{
				CuePath: c.path,
				Reason:  fmt.Sprintf("audio file %q not found in %s", name, dir),
			})
			continue
		}
		res.Pairs = append(res.Pairs, domain.Pair{
			CuePath:       c.path,
			ImagePath:     filepath.Join(dir, image),
			CoverArtPath:  res.CoverArtPath,
			SourceCuePath: c.source,
		})
	}

	return res, nil
}

// expand writes the single-FILE parts of a multi-FILE sheet next to it.
// A part whose file already holds the same content is left untouched. A part
// whose audio file and part file are both gone while a sibling part remains
// was consumed by an earlier run and is not written again.
func expand(path string, data []byte, names []string) (*domain.SplitCueSet, []candidate, []Drop) {
	docs, err := cue.Split(data)
	if err != nil {
		return nil, nil, []Drop{{CuePath: path, Reason: err.Error()}}
	}

	expanded := false
	for i := range docs {
		if storage.Exists(cue.PartName(path, i+1)) {
			expanded = true
			break
		}
	}

	set := &domain.SplitCueSet{OriginalCuePath: path}
	var parts []candidate
	var drops []Drop
	for i, doc := range docs {
		partPath := cue.PartName(path, i+1)
		if name, err := cue.FileName(doc); err == nil {
			if _, ok := matchFile(name, names); !ok {
				if expanded && !storage.Exists(partPath) {
					set.Consumed = append(set.Consumed, partPath)
					continue
				}
				set.Unpaired = append(set.Unpaired, partPath)
				drops = append(drops, Drop{CuePath: partPath, Reason: fmt.Sprintf("audio file %q not found in %s", name, filepath.Dir(path))})
				continue
			}
		}
		if _, err := storage.WriteFileIfChanged(partPath, doc); err != nil {
			set.Unpaired = append(set.Unpaired, partPath)
			drops = append(drops, Drop{CuePath: partPath, Reason: fmt.Sprintf("write part failed: %v", err)})
			continue
		}
		set.Parts = append(set.Parts, partPath)
		parts = append(parts, candidate{path: partPath, data: doc, source: path})
	}
	if len(set.Parts) == 0 {
		return nil, nil, drops
	}
	return set, parts, drops
}

// matchFile resolves a FILE directive against the names in one directory.
// Only the base name is used; an exact match wins over a case-insensitive one.
func matchFile(name string, names []string) (string, bool) {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		return "", false
	}
	for _, n := range names {
		if n == base {
			return n, true
		}
	}
	for _, n := range names {
		if strings.EqualFold(n, base) {
			return n, true
		}
	}
	return "", false
}

// FindCover picks the album cover among candidate image paths, given in walk
// order. A name containing "front" wins. Otherwise the first image that is
// not back, side or inner artwork is used.
func FindCover(images []string) string {
	var other string
	for _, path := range images {
		name := strings.ToLower(filepath.Base(path))
		switch {
		case strings.Contains(name, "front"):
			return path
		case strings.Contains(name, "back"), strings.Contains(name, "side"), strings.Contains(name, "inner"):
		default:
			if other == "" {
				other = path
			}
		}
	}
	return other
}

// IsAudioImage reports whether path has one of the known audio image
// extensions. Other files named by a FILE directive are still handed to the
// decoder.
func IsAudioImage(path string) bool {
	return hasExt(strings.ToLower(filepath.Ext(path)), constants.ImageExtensions)
}

func hasExt(ext string, list []string) bool {
	for _, e := range list {
		if ext == e {
			return true
		}
	}
	return false
}

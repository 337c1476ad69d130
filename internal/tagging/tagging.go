package tagging

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-flac/flacvorbis"
	"github.com/go-flac/go-flac"

	"github.com/cesargomez89/cuesplit/internal/constants"
	"github.com/cesargomez89/cuesplit/internal/cue"
)

var ErrUnsupportedFormat = errors.New("unsupported audio format")

// Writer applies CUE metadata to split FLAC tracks in-process.
type Writer struct {
	vendor string
}

func NewWriter() *Writer {
	return &Writer{vendor: "cuesplit"}
}

// TagTracks writes Vorbis comments to every track. The track number is taken
// from the leading digits of the file name, as produced by the splitter.
func (w *Writer) TagTracks(sheet *cue.Sheet, tracks []string) error {
	total := sheet.TrackCount()
	for _, path := range tracks {
		num, ok := TrackNumber(path)
		if !ok {
			return fmt.Errorf("cannot determine track number of %s", filepath.Base(path))
		}
		track, _ := sheet.Track(num)
		if err := w.tagFLAC(path, newComment(sheet, track, num, total)); err != nil {
			return fmt.Errorf("tag %s: %w", filepath.Base(path), err)
		}
	}
	return nil
}

// TrackNumber parses the leading number of a file name like "03. Title.flac".
func TrackNumber(path string) (int, bool) {
	name := filepath.Base(path)
	end := 0
	for end < len(name) && name[end] >= '0' && name[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(name[:end])
	return n, err == nil
}

type comment struct {
	fields [][2]string
}

func newComment(sheet *cue.Sheet, track cue.Track, num, total int) comment {
	var c comment
	addTag := func(name, value string) {
		if value != "" {
			c.fields = append(c.fields, [2]string{name, value})
		}
	}

	artist := track.Performer
	if artist == "" {
		artist = sheet.Performer
	}

	addTag(flacvorbis.FIELD_TITLE, track.Title)
	addTag(flacvorbis.FIELD_ARTIST, artist)
	addTag("ALBUMARTIST", sheet.Performer)
	addTag(flacvorbis.FIELD_ALBUM, sheet.Title)
	addTag(flacvorbis.FIELD_TRACKNUMBER, strconv.Itoa(num))
	if total > 0 {
		addTag("TRACKTOTAL", strconv.Itoa(total))
	}
	addTag(flacvorbis.FIELD_GENRE, sheet.Genre)
	addTag(flacvorbis.FIELD_DATE, sheet.Date)
	return c
}

// tagFLAC replaces the Vorbis comment block and leaves audio frames untouched.
func (w *Writer) tagFLAC(path string, c comment) error {
	if !strings.EqualFold(filepath.Ext(path), constants.ExtFLAC) {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}

	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	vc := flacvorbis.New()
	vc.Vendor = w.vendor
	for _, kv := range c.fields {
		if err := vc.Add(kv[0], kv[1]); err != nil {
			return fmt.Errorf("failed to add %s: %w", kv[0], err)
		}
	}
	block := vc.Marshal()

	meta := make([]*flac.MetaDataBlock, 0, len(f.Meta)+1)
	for _, m := range f.Meta {
		if m.Type != flac.VorbisComment {
			meta = append(meta, m)
		}
	}
	f.Meta = append(meta, &block)

	return saveFLAC(f, path)
}

// saveFLAC writes through a temp file in the same directory and renames it
// over the original.
func saveFLAC(f *flac.File, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "*.flac.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	tmp.Close()

	if err := f.Save(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to write FLAC file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace original FLAC file: %w", err)
	}
	return nil
}

// ReadComments returns the Vorbis comments of a FLAC file as "KEY=value".
func ReadComments(path string) ([]string, error) {
	f, err := flac.ParseFile(path)
	if err != nil {
		return nil, err
	}
	for _, m := range f.Meta {
		if m.Type == flac.VorbisComment {
			vc, err := flacvorbis.ParseFromMetaDataBlock(*m)
			if err != nil {
				return nil, err
			}
			return vc.Comments, nil
		}
	}
	return nil, nil
}

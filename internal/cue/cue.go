// Package cue reads CUE sheets and splits multi-FILE sheets into
// single-FILE documents that line-oriented splitters can consume.
package cue

import (
	"bytes"
	"errors"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cesargomez89/cuesplit/internal/constants"
)

// ErrNoFile is returned for a sheet without any FILE directive.
var ErrNoFile = errors.New("cue sheet has no FILE directive")

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Track is one TRACK entry with its original number.
type Track struct {
	Number    int
	Title     string
	Performer string
}

// File is one FILE block and the tracks whose INDEX 01 lies inside it.
type File struct {
	Name   string
	Type   string
	Tracks []Track
}

// Sheet is the parsed form of a CUE document.
type Sheet struct {
	Performer string
	Title     string
	Genre     string
	Date      string
	Files     []File
}

// TrackCount returns the number of tracks across all FILE blocks.
func (s *Sheet) TrackCount() int {
	n := 0
	for _, f := range s.Files {
		n += len(f.Tracks)
	}
	return n
}

// Track looks up a track by its original number.
func (s *Sheet) Track(number int) (Track, bool) {
	for _, f := range s.Files {
		for _, t := range f.Tracks {
			if t.Number == number {
				return t, true
			}
		}
	}
	return Track{}, false
}

// CountFiles counts FILE directives without decoding the text, so it works
// for sheets in any single-byte or UTF-8 encoding.
func CountFiles(data []byte) int {
	n := 0
	for _, line := range splitLines(data) {
		if keyword(line) == "FILE" {
			n++
		}
	}
	return n
}

// Parse reads the header metadata and FILE blocks of a sheet.
func Parse(data []byte) (*Sheet, error) {
	header, blocks, err := layout(data)
	if err != nil {
		return nil, err
	}

	sheet := &Sheet{}
	for _, line := range header {
		switch keyword(line) {
		case "PERFORMER":
			sheet.Performer = value(line, "PERFORMER")
		case "TITLE":
			sheet.Title = value(line, "TITLE")
		case "REM":
			rest := value(line, "REM")
			switch {
			case hasWordPrefix(rest, "GENRE"):
				sheet.Genre = unquote(strings.TrimSpace(rest[len("GENRE"):]))
			case hasWordPrefix(rest, "DATE"):
				sheet.Date = unquote(strings.TrimSpace(rest[len("DATE"):]))
			}
		}
	}

	for _, block := range blocks {
		name, typ := fileDirective(block[0])
		f := File{Name: name, Type: typ}
		var current *Track
		for _, line := range block[1:] {
			switch keyword(line) {
			case "TRACK":
				fields := strings.Fields(string(line))
				num := 0
				if len(fields) > 1 {
					num, _ = strconv.Atoi(fields[1])
				}
				f.Tracks = append(f.Tracks, Track{Number: num})
				current = &f.Tracks[len(f.Tracks)-1]
			case "TITLE":
				if current != nil {
					current.Title = value(line, "TITLE")
				}
			case "PERFORMER":
				if current != nil {
					current.Performer = value(line, "PERFORMER")
				}
			}
		}
		sheet.Files = append(sheet.Files, f)
	}
	return sheet, nil
}

// Split returns one document per FILE block. Each document carries the
// global header verbatim followed by its block, with the original track
// numbers and line endings. A single-FILE sheet is returned unchanged.
func Split(data []byte) ([][]byte, error) {
	header, blocks, err := layout(data)
	if err != nil {
		return nil, err
	}
	if len(blocks) == 1 {
		return [][]byte{data}, nil
	}

	parts := make([][]byte, 0, len(blocks))
	for _, block := range blocks {
		var buf bytes.Buffer
		for _, line := range header {
			buf.Write(line)
		}
		for i, line := range block {
			buf.Write(line)
			if i == len(block)-1 && !bytes.HasSuffix(line, []byte("\n")) {
				buf.WriteString(lineEnding(data))
			}
		}
		parts = append(parts, buf.Bytes())
	}
	return parts, nil
}

// PartName names the k-th (1-based) document split from cuePath.
func PartName(cuePath string, k int) string {
	ext := filepath.Ext(cuePath)
	stem := strings.TrimSuffix(cuePath, ext)
	return stem + constants.SplitPartInfix + strconv.Itoa(k) + ext
}

// FirstTrack returns the lowest track number in the sheet, or 1 when the
// sheet has no tracks.
func (s *Sheet) FirstTrack() int {
	first := 0
	for _, f := range s.Files {
		for _, t := range f.Tracks {
			if first == 0 || (t.Number > 0 && t.Number < first) {
				first = t.Number
			}
		}
	}
	if first < 1 {
		return 1
	}
	return first
}

// layout cuts the sheet into header lines and FILE blocks. A track whose
// INDEX 01 only appears after the next FILE directive is moved into that
// block, and its INDEX 00 is dropped since it points into the previous file.
func layout(data []byte) ([][]byte, [][][]byte, error) {
	lines := splitLines(bytes.TrimPrefix(data, utf8BOM))

	var header [][]byte
	var blocks [][][]byte
	for _, line := range lines {
		if keyword(line) == "FILE" {
			blocks = append(blocks, [][]byte{line})
			continue
		}
		if len(blocks) == 0 {
			header = append(header, line)
			continue
		}
		blocks[len(blocks)-1] = append(blocks[len(blocks)-1], line)
	}
	if len(blocks) == 0 {
		return nil, nil, ErrNoFile
	}

	for i := 0; i < len(blocks)-1; i++ {
		start := danglingTrack(blocks[i])
		if start < 0 || !opensWithIndex01(blocks[i+1]) {
			continue
		}
		moved := make([][]byte, 0, len(blocks[i])-start)
		for _, line := range blocks[i][start:] {
			if isIndex(line, "00") {
				continue
			}
			moved = append(moved, line)
		}
		blocks[i] = blocks[i][:start]

		next := make([][]byte, 0, len(blocks[i+1])+len(moved))
		next = append(next, blocks[i+1][0])
		next = append(next, moved...)
		next = append(next, blocks[i+1][1:]...)
		blocks[i+1] = next
	}
	return header, blocks, nil
}

// danglingTrack returns the line offset of the last TRACK in block when that
// track has no INDEX 01 of its own, or -1.
func danglingTrack(block [][]byte) int {
	last := -1
	for i, line := range block {
		if keyword(line) == "TRACK" {
			last = i
		}
	}
	if last < 0 {
		return -1
	}
	for _, line := range block[last+1:] {
		if isIndex(line, "01") {
			return -1
		}
	}
	return last
}

// opensWithIndex01 reports whether a block has an INDEX 01 before its first TRACK.
func opensWithIndex01(block [][]byte) bool {
	for _, line := range block[1:] {
		if keyword(line) == "TRACK" {
			return false
		}
		if isIndex(line, "01") {
			return true
		}
	}
	return false
}

func isIndex(line []byte, number string) bool {
	if keyword(line) != "INDEX" {
		return false
	}
	fields := strings.Fields(string(line))
	if len(fields) < 2 {
		return false
	}
	n, err := strconv.Atoi(fields[1])
	if err != nil {
		return false
	}
	want, _ := strconv.Atoi(number)
	return n == want
}

// splitLines cuts data after every '\n', keeping the terminators.
func splitLines(data []byte) [][]byte {
	var lines [][]byte
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			lines = append(lines, data)
			break
		}
		lines = append(lines, data[:i+1])
		data = data[i+1:]
	}
	return lines
}

func lineEnding(data []byte) string {
	if bytes.Contains(data, []byte("\r\n")) {
		return "\r\n"
	}
	return "\n"
}

// keyword returns the upper-cased first token of a line.
func keyword(line []byte) string {
	trimmed := bytes.TrimLeft(bytes.TrimPrefix(line, utf8BOM), " \t")
	end := bytes.IndexAny(trimmed, " \t\r\n")
	if end < 0 {
		end = len(trimmed)
	}
	return strings.ToUpper(string(trimmed[:end]))
}

// value returns the argument of a "KEYWORD value" line without quotes.
func value(line []byte, kw string) string {
	s := strings.TrimSpace(string(line))
	if len(s) < len(kw) {
		return ""
	}
	return unquote(strings.TrimSpace(s[len(kw):]))
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

func hasWordPrefix(s, word string) bool {
	if len(s) < len(word) || !strings.EqualFold(s[:len(word)], word) {
		return false
	}
	return len(s) == len(word) || s[len(word)] == ' ' || s[len(word)] == '\t'
}

// fileDirective extracts the file name and type from a FILE line. Both
// quoted and unquoted names are accepted.
func fileDirective(line []byte) (string, string) {
	s := strings.TrimSpace(string(line))
	rest := strings.TrimSpace(s[len("FILE"):])

	if strings.HasPrefix(rest, `"`) {
		end := strings.LastIndex(rest, `"`)
		if end > 0 {
			return rest[1:end], strings.TrimSpace(rest[end+1:])
		}
		return strings.Trim(rest, `"`), ""
	}

	fields := strings.Fields(rest)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	default:
		return strings.Join(fields[:len(fields)-1], " "), fields[len(fields)-1]
	}
}

// FileName returns the audio file referenced by a single-FILE sheet.
func FileName(data []byte) (string, error) {
	_, blocks, err := layout(data)
	if err != nil {
		return "", err
	}
	name, _ := fileDirective(blocks[0][0])
	return name, nil
}

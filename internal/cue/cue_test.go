package cue

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

const twoDiscSheet = `REM GENRE Rock
REM DATE 1999
PERFORMER "The Band"
TITLE "Double Album"
FILE "Disc1.FLAC" WAVE
  TRACK 01 AUDIO
    TITLE "One"
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    TITLE "Two"
    INDEX 01 04:00:00
FILE "Disc2.flac" WAVE
  TRACK 03 AUDIO
    TITLE "Three"
    PERFORMER "Guest"
    INDEX 01 00:00:00
  TRACK 04 AUDIO
    TITLE "Four"
    INDEX 01 03:30:00
`

func TestCountFiles(t *testing.T) {
	tests := []struct {
		name string
		data string
		want int
	}{
		{"none", "TITLE \"x\"\n", 0},
		{"single", "FILE \"a.flac\" WAVE\n  TRACK 01 AUDIO\n", 1},
		{"double", twoDiscSheet, 2},
		{"crlf and indent", "FILE a.wav WAVE\r\n\tFILE b.wav WAVE\r\n", 2},
		{"latin1 bytes", "TITLE \"Caf\xe9\"\nFILE \"caf\xe9.ape\" WAVE\n", 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CountFiles([]byte(tt.data)); got != tt.want {
				t.Errorf("CountFiles() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParse(t *testing.T) {
	sheet, err := Parse([]byte(twoDiscSheet))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	if sheet.Performer != "The Band" || sheet.Title != "Double Album" {
		t.Errorf("Unexpected album metadata: %+v", sheet)
	}
	if sheet.Genre != "Rock" || sheet.Date != "1999" {
		t.Errorf("Expected genre Rock and date 1999, got %q %q", sheet.Genre, sheet.Date)
	}
	if len(sheet.Files) != 2 {
		t.Fatalf("Expected 2 files, got %d", len(sheet.Files))
	}
	if sheet.Files[0].Name != "Disc1.FLAC" || sheet.Files[0].Type != "WAVE" {
		t.Errorf("Unexpected first file: %+v", sheet.Files[0])
	}
	if sheet.TrackCount() != 4 {
		t.Errorf("Expected 4 tracks, got %d", sheet.TrackCount())
	}

	tr, ok := sheet.Track(3)
	if !ok || tr.Title != "Three" || tr.Performer != "Guest" {
		t.Errorf("Unexpected track 3: %+v (found=%v)", tr, ok)
	}
}

func TestParseNoFile(t *testing.T) {
	_, err := Parse([]byte("PERFORMER \"x\"\nTITLE \"y\"\n"))
	if !errors.Is(err, ErrNoFile) {
		t.Errorf("Expected ErrNoFile, got %v", err)
	}
}

func TestParseUnquotedAndBOM(t *testing.T) {
	data := "\xEF\xBB\xBFFILE my album.wav WAVE\r\n  TRACK 01 AUDIO\r\n    TITLE Intro\r\n    INDEX 01 00:00:00\r\n"
	sheet, err := Parse([]byte(data))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if sheet.Files[0].Name != "my album.wav" {
		t.Errorf("Expected unquoted name with space, got %q", sheet.Files[0].Name)
	}
	if sheet.Files[0].Tracks[0].Title != "Intro" {
		t.Errorf("Expected title Intro, got %q", sheet.Files[0].Tracks[0].Title)
	}
}

func TestSplit(t *testing.T) {
	parts, err := Split([]byte(twoDiscSheet))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(parts) != 2 {
		t.Fatalf("Expected 2 parts, got %d", len(parts))
	}

	var numbers []int
	for i, part := range parts {
		if CountFiles(part) != 1 {
			t.Errorf("Part %d has %d FILE directives", i+1, CountFiles(part))
		}
		if !bytes.HasPrefix(part, []byte("REM GENRE Rock\nREM DATE 1999\nPERFORMER \"The Band\"\nTITLE \"Double Album\"\n")) {
			t.Errorf("Part %d lost the global header:\n%s", i+1, part)
		}
		sheet, err := Parse(part)
		if err != nil {
			t.Fatalf("Parse part %d: %v", i+1, err)
		}
		for _, f := range sheet.Files {
			for _, tr := range f.Tracks {
				numbers = append(numbers, tr.Number)
			}
		}
	}

	want := []int{1, 2, 3, 4}
	if len(numbers) != len(want) {
		t.Fatalf("Expected tracks %v, got %v", want, numbers)
	}
	for i := range want {
		if numbers[i] != want[i] {
			t.Errorf("Expected original numbering %v, got %v", want, numbers)
			break
		}
	}

	if !strings.Contains(string(parts[1]), "TRACK 03 AUDIO") {
		t.Errorf("Expected second part to keep TRACK 03, got:\n%s", parts[1])
	}
}

func TestSplitSingleFileUnchanged(t *testing.T) {
	data := []byte("FILE \"a.flac\" WAVE\n  TRACK 01 AUDIO\n    INDEX 01 00:00:00\n")
	parts, err := Split(data)
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if len(parts) != 1 || !bytes.Equal(parts[0], data) {
		t.Errorf("Expected single-FILE sheet to be returned unchanged, got %q", parts)
	}
}

func TestSplitPreservesCRLF(t *testing.T) {
	data := strings.ReplaceAll(twoDiscSheet, "\n", "\r\n")
	parts, err := Split([]byte(data))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	for i, part := range parts {
		if bytes.Count(part, []byte("\n")) != bytes.Count(part, []byte("\r\n")) {
			t.Errorf("Part %d mixes line endings", i+1)
		}
	}
}

func TestSplitMovesPregapTrack(t *testing.T) {
	data := `TITLE "Gapless"
FILE "a.wav" WAVE
  TRACK 01 AUDIO
    INDEX 01 00:00:00
  TRACK 02 AUDIO
    TITLE "Hidden"
    INDEX 00 05:00:00
FILE "b.wav" WAVE
    INDEX 01 00:00:00
  TRACK 03 AUDIO
    INDEX 01 02:00:00
`
	parts, err := Split([]byte(data))
	if err != nil {
		t.Fatalf("Split failed: %v", err)
	}
	if strings.Contains(string(parts[0]), "TRACK 02") {
		t.Errorf("Expected TRACK 02 to leave the first part:\n%s", parts[0])
	}
	if strings.Contains(string(parts[1]), "INDEX 00") {
		t.Errorf("Expected pregap index to be dropped:\n%s", parts[1])
	}

	sheet, err := Parse(parts[1])
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	tracks := sheet.Files[0].Tracks
	if len(tracks) != 2 || tracks[0].Number != 2 || tracks[0].Title != "Hidden" {
		t.Errorf("Expected tracks 2 and 3 in second part, got %+v", tracks)
	}
	if sheet.FirstTrack() != 2 {
		t.Errorf("Expected first track 2, got %d", sheet.FirstTrack())
	}
}

func TestSplitNoFile(t *testing.T) {
	if _, err := Split([]byte("TITLE \"x\"\n")); !errors.Is(err, ErrNoFile) {
		t.Errorf("Expected ErrNoFile, got %v", err)
	}
}

func TestPartName(t *testing.T) {
	tests := []struct {
		path string
		k    int
		want string
	}{
		{"/music/album.cue", 1, "/music/album_part1.cue"},
		{"/music/album.CUE", 2, "/music/album_part2.CUE"},
		{"/music/a.b.cue", 3, "/music/a.b_part3.cue"},
	}
	for _, tt := range tests {
		if got := PartName(tt.path, tt.k); got != tt.want {
			t.Errorf("PartName(%q, %d) = %q, want %q", tt.path, tt.k, got, tt.want)
		}
	}
}

func TestFileName(t *testing.T) {
	name, err := FileName([]byte("FILE \"C:\\rips\\Disc1.ape\" WAVE\n"))
	if err != nil {
		t.Fatalf("FileName failed: %v", err)
	}
	if name != `C:\rips\Disc1.ape` {
		t.Errorf("Expected raw FILE name, got %q", name)
	}
}

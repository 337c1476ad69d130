package tagging

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/go-flac"
)

var ErrUnsupportedCover = errors.New("unsupported cover image type")

// EmbedCover attaches the image at coverPath as the front cover of an
// encoded track. FLAC and MP3 are supported.
func EmbedCover(trackPath, coverPath string) error {
	data, err := os.ReadFile(coverPath)
	if err != nil {
		return fmt.Errorf("failed to read cover: %w", err)
	}
	mime := detectMIME(data)

	switch strings.ToLower(filepath.Ext(trackPath)) {
	case ".flac":
		return embedFLAC(trackPath, data, mime)
	case ".mp3":
		return embedMP3(trackPath, data, mime)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(trackPath))
	}
}

// CanEmbed reports whether a cover can be attached to tracks of the given
// extension without re-encoding.
func CanEmbed(ext string) bool {
	switch strings.ToLower(ext) {
	case ".flac", ".mp3":
		return true
	default:
		return false
	}
}

func detectMIME(data []byte) string {
	// Trim any parameters such as charset.
	mime := http.DetectContentType(data)
	if idx := strings.Index(mime, ";"); idx != -1 {
		mime = strings.TrimSpace(mime[:idx])
	}
	return mime
}

// embedFLAC replaces any existing picture blocks with a front cover.
// The picture block only accepts JPEG and PNG data.
func embedFLAC(path string, data []byte, mime string) error {
	if mime != "image/jpeg" && mime != "image/png" {
		return fmt.Errorf("%w: %s", ErrUnsupportedCover, mime)
	}

	f, err := flac.ParseFile(path)
	if err != nil {
		return fmt.Errorf("failed to parse FLAC file: %w", err)
	}

	pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Front Cover", data, mime)
	if err != nil {
		return fmt.Errorf("failed to build picture block: %w", err)
	}
	block := pic.Marshal()

	meta := make([]*flac.MetaDataBlock, 0, len(f.Meta)+1)
	for _, m := range f.Meta {
		if m.Type != flac.Picture {
			meta = append(meta, m)
		}
	}
	f.Meta = append(meta, &block)

	return saveFLAC(f, path)
}

func embedMP3(path string, data []byte, mime string) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open MP3 file: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(4)
	tag.DeleteFrames(tag.CommonID("Attached picture"))
	tag.AddAttachedPicture(id3v2.PictureFrame{
		Encoding:    id3v2.EncodingUTF8,
		MimeType:    mime,
		PictureType: id3v2.PTFrontCover,
		Description: "Front Cover",
		Picture:     data,
	})

	return tag.Save()
}

package pipeline

import (
	"fmt"
	"strconv"

	"github.com/cesargomez89/cuesplit/internal/constants"
	"github.com/cesargomez89/cuesplit/internal/domain"
)

// Encoder is the closed set of output strategies. It is chosen once at
// start-up and shared by every pair.
type Encoder interface {
	Format() domain.Format
	Ext() string
	// Args are the ffmpeg codec arguments placed before the output path.
	Args() []string
}

type Flac struct {
	Level int
}

func (Flac) Format() domain.Format { return domain.FormatFLAC }
func (Flac) Ext() string           { return constants.ExtFLAC }
func (e Flac) Args() []string {
	return []string{"-c:a", "flac", "-compression_level", strconv.Itoa(e.Level)}
}

type Mp3 struct {
	BitrateK int
}

func (Mp3) Format() domain.Format { return domain.FormatMP3 }
func (Mp3) Ext() string           { return constants.ExtMP3 }
func (e Mp3) Args() []string {
	return []string{"-c:a", "libmp3lame", "-b:a", strconv.Itoa(e.BitrateK) + "k"}
}

type Aac struct {
	BitrateK int
}

func (Aac) Format() domain.Format { return domain.FormatAAC }
func (Aac) Ext() string           { return constants.ExtAAC }
func (e Aac) Args() []string {
	return []string{"-c:a", "aac", "-b:a", strconv.Itoa(e.BitrateK) + "k"}
}

// NewEncoder maps an output format to its encoder settings.
func NewEncoder(format domain.Format) (Encoder, error) {
	switch format {
	case domain.FormatFLAC:
		return Flac{Level: constants.FLACCompressionLevel}, nil
	case domain.FormatMP3:
		return Mp3{BitrateK: constants.MP3BitrateKbps}, nil
	case domain.FormatAAC:
		return Aac{BitrateK: constants.AACBitrateKbps}, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q", format)
	}
}

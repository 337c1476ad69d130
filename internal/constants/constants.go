// Package constants contains application-wide constants to avoid magic numbers and strings.
package constants

import "time"

// Application defaults
const (
	DefaultPort            = "8080"
	DefaultLogDir          = "/tmp/cue_split_logs"
	DefaultFormat          = "flac"
	DefaultTagger          = TaggerCuetag
	DefaultShutdownTimeout = 5 * time.Second
	DefaultStatusAddr      = "http://127.0.0.1:8080"
	DefaultClientTimeout   = 10 * time.Second
	DefaultRetryCount      = 3
	DefaultRetryBase       = 500 * time.Millisecond
)

// External tools
const (
	DefaultFFmpegBin   = "ffmpeg"
	DefaultShnsplitBin = "shnsplit"
	DefaultCuetagBin   = "cuetag"
	DefaultDetectorBin = "uchardet"
)

// Output formats
const (
	FormatFLAC = "flac"
	FormatMP3  = "mp3"
	FormatAAC  = "aac"
)

// Tag writers
const (
	TaggerCuetag = "cuetag"
	TaggerNative = "native"
)

// Encoder settings
const (
	FLACCompressionLevel = 8
	MP3BitrateKbps       = 320
	AACBitrateKbps       = 256
)

// File Extensions
const (
	ExtCUE  = ".cue"
	ExtFLAC = ".flac"
	ExtMP3  = ".mp3"
	ExtAAC  = ".aac"
	ExtWAV  = ".wav"
	ExtLog  = ".log"
)

// ImageExtensions lists the audio image formats the decoder accepts.
var ImageExtensions = []string{".ape", ".flac", ".wav", ".wv"}

// CoverExtensions lists the picture formats considered for cover art.
var CoverExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tiff", ".tif", ".webp"}

// File Names
const (
	ScratchDirPrefix = ".cuesplit-"
	SplitPartInfix   = "_part"
	UTF8CueSuffix    = ".utf8.cue"
	LockFileName     = "cuesplitd.lock"
)

// File Permissions
const (
	DirPermissions  = 0755
	FilePermissions = 0644
)

// Logging
const (
	MaxStderrInMessage = 512
	LogTimeFormat      = "2006-01-02 15:04:05"
)

// Job messages
const (
	MsgNoPairs = "no cue/image pairs found"
)

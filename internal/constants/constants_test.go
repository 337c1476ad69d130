package constants

import (
	"strings"
	"testing"
)

func TestDefaultValues(t *testing.T) {
	if DefaultPort != "8080" {
		t.Errorf("Expected DefaultPort to be '8080', got '%s'", DefaultPort)
	}

	if DefaultLogDir != "/tmp/cue_split_logs" {
		t.Errorf("Expected DefaultLogDir to be '/tmp/cue_split_logs', got '%s'", DefaultLogDir)
	}

	if DefaultFormat != FormatFLAC {
		t.Errorf("Expected DefaultFormat to be '%s', got '%s'", FormatFLAC, DefaultFormat)
	}

	if DefaultTagger != TaggerCuetag {
		t.Errorf("Expected DefaultTagger to be '%s', got '%s'", TaggerCuetag, DefaultTagger)
	}
}

func TestEncoderSettings(t *testing.T) {
	if FLACCompressionLevel != 8 {
		t.Errorf("Expected FLAC level 8, got %d", FLACCompressionLevel)
	}
	if MP3BitrateKbps != 320 {
		t.Errorf("Expected MP3 bitrate 320, got %d", MP3BitrateKbps)
	}
	if AACBitrateKbps != 256 {
		t.Errorf("Expected AAC bitrate 256, got %d", AACBitrateKbps)
	}
}

func TestExtensionsAreLowercaseWithDot(t *testing.T) {
	all := append(append([]string{}, ImageExtensions...), CoverExtensions...)
	for _, ext := range all {
		if !strings.HasPrefix(ext, ".") {
			t.Errorf("Extension %q should start with a dot", ext)
		}
		if ext != strings.ToLower(ext) {
			t.Errorf("Extension %q should be lowercase", ext)
		}
	}
}

func TestFilePermissions(t *testing.T) {
	if DirPermissions != 0755 {
		t.Errorf("Expected DirPermissions 0755, got %o", DirPermissions)
	}
	if FilePermissions != 0644 {
		t.Errorf("Expected FilePermissions 0644, got %o", FilePermissions)
	}
}

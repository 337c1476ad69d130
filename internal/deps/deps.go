// Package deps checks that the external audio tools are installed.
package deps

import (
	"fmt"
	"os/exec"
	"strings"

	"github.com/cesargomez89/cuesplit/internal/config"
	"github.com/cesargomez89/cuesplit/internal/constants"
)

// Requirement defines an external tool the pipeline runs.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a tool.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// Requirements lists the tools the configured pipeline needs. cuetag is
// only required when it is the selected tag writer.
func Requirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{Name: "FFmpeg", Command: cfg.FFmpegBin, Description: "Decodes images and encodes tracks"},
		{Name: "shnsplit", Command: cfg.ShnsplitBin, Description: "Splits WAV audio at CUE indexes"},
		{Name: "cuetag", Command: cfg.CuetagBin, Description: "Writes CUE metadata into tracks", Optional: cfg.Tagger != constants.TaggerCuetag},
		{Name: "uchardet", Command: cfg.DetectorBin, Description: "Detects CUE sheet encodings"},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := exec.LookPath(cmd)
		if err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Command = path
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required tools that are not available.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, s := range statuses {
		if !s.Available && !s.Optional {
			missing = append(missing, s)
		}
	}
	return missing
}

package domain

import (
	"testing"
)

func TestJobStatus_Constants(t *testing.T) {
	tests := []struct {
		name     string
		status   JobStatus
		expected string
	}{
		{"queued", JobStatusQueued, "queued"},
		{"processing", JobStatusProcessing, "processing"},
		{"success", JobStatusSuccess, "success"},
		{"partial", JobStatusPartial, "partial"},
		{"error", JobStatusError, "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.status) != tt.expected {
				t.Errorf("JobStatus %s = %q, want %q", tt.name, tt.status, tt.expected)
			}
		})
	}
}

func TestJobStatus_CanTransition(t *testing.T) {
	tests := []struct {
		from, to JobStatus
		want     bool
	}{
		{JobStatusQueued, JobStatusProcessing, true},
		{JobStatusQueued, JobStatusError, true},
		{JobStatusQueued, JobStatusSuccess, false},
		{JobStatusProcessing, JobStatusSuccess, true},
		{JobStatusProcessing, JobStatusPartial, true},
		{JobStatusProcessing, JobStatusError, true},
		{JobStatusProcessing, JobStatusQueued, false},
		{JobStatusSuccess, JobStatusProcessing, false},
		{JobStatusPartial, JobStatusError, false},
		{JobStatusError, JobStatusQueued, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.want {
			t.Errorf("%s -> %s = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func results(success, failed int) []PairResult {
	var out []PairResult
	for i := 0; i < success; i++ {
		out = append(out, PairResult{Status: PairStatusSuccess})
	}
	for i := 0; i < failed; i++ {
		out = append(out, PairResult{Status: PairStatusError, Command: "split"})
	}
	return out
}

func TestAggregate(t *testing.T) {
	tests := []struct {
		success, failed int
		status          JobStatus
		message         string
	}{
		{0, 0, JobStatusError, "no cue/image pairs found"},
		{1, 0, JobStatusSuccess, "all 1 pair(s) succeeded"},
		{3, 0, JobStatusSuccess, "all 3 pair(s) succeeded"},
		{0, 1, JobStatusError, "all 1 pair(s) failed"},
		{0, 4, JobStatusError, "all 4 pair(s) failed"},
		{1, 1, JobStatusPartial, "1 of 2 pair(s) succeeded"},
		{5, 2, JobStatusPartial, "5 of 7 pair(s) succeeded"},
	}

	for _, tt := range tests {
		out := Aggregate(results(tt.success, tt.failed))
		if out.Status != tt.status {
			t.Errorf("Aggregate(%d ok, %d failed) status = %s, want %s", tt.success, tt.failed, out.Status, tt.status)
		}
		if out.Message != tt.message {
			t.Errorf("Aggregate(%d ok, %d failed) message = %q, want %q", tt.success, tt.failed, out.Message, tt.message)
		}
		if len(out.Details) != tt.success+tt.failed {
			t.Errorf("Expected %d details, got %d", tt.success+tt.failed, len(out.Details))
		}
	}
}

func TestAggregate_KeepsOrder(t *testing.T) {
	in := []PairResult{
		{Status: PairStatusError, Cue: "a.cue"},
		{Status: PairStatusSuccess, Cue: "b.cue"},
	}
	out := Aggregate(in)
	if out.Details[0].Cue != "a.cue" || out.Details[1].Cue != "b.cue" {
		t.Errorf("Expected details in input order, got %+v", out.Details)
	}
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"flac", "MP3", " aac "} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) unexpected error: %v", in, err)
		}
	}
	if _, err := ParseFormat("ogg"); err == nil {
		t.Error("Expected error for ogg")
	}
}

func TestPairResults_ValueScan(t *testing.T) {
	in := PairResults{{Status: PairStatusError, Command: "tag", Message: "boom", Log: "/tmp/1.log"}}
	v, err := in.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var out PairResults
	if err := out.Scan(v); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(out) != 1 || out[0].Command != "tag" || out[0].Message != "boom" {
		t.Errorf("Unexpected scanned results: %+v", out)
	}

	var empty PairResults
	if err := empty.Scan("[]"); err != nil || empty != nil {
		t.Errorf("Expected nil results for empty array, got %+v (%v)", empty, err)
	}
}

func TestJobKey(t *testing.T) {
	if (Job{ID: 12}).Key() != "12" {
		t.Error("Expected key 12")
	}
}

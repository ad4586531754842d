// Package artifact writes report JSON, logs, and sample rows to object
// storage under deterministic keys. Absence of the backend is a soft
// failure: the run still completes, artifact presence is advisory.
package artifact

import (
	"context"
	"fmt"
	"time"
)

// Writer is the contract the orchestrator depends on.
type Writer interface {
	// Write stores content under the deterministic key for (runID, kind,
	// name, when) and returns the opaque storage path plus an optional
	// time-limited access URL. A nil error with an empty path signals the
	// backend was unavailable; callers treat that as advisory, not fatal.
	Write(ctx context.Context, runID string, kind Kind, name string, contentType string, content []byte, when time.Time) (path string, url *string, err error)
}

// Kind mirrors model.ArtifactKind but stays local to this package so
// artifact.Writer has no dependency on the durable record shape.
type Kind string

const (
	KindReport  Kind = "report"
	KindLogs    Kind = "logs"
	KindSamples Kind = "samples"
)

// Key builds the deterministic object key:
// runs/YYYY/MM/DD/<run_id>/{report.json|logs.txt|samples/<name>.json}
func Key(runID string, kind Kind, name string, when time.Time) string {
	prefix := fmt.Sprintf("runs/%04d/%02d/%02d/%s", when.Year(), when.Month(), when.Day(), runID)
	switch kind {
	case KindReport:
		return prefix + "/report.json"
	case KindLogs:
		return prefix + "/logs.txt"
	case KindSamples:
		return prefix + "/samples/" + name + ".json"
	default:
		return prefix + "/" + name
	}
}

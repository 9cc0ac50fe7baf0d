// Package branchdeck implements the Branch Sync Orchestrator (spec.md
// §4.9): it drives the Classifier, Cherry-Pick Engine, Integration
// Detector, and Remote Status Probe over one repository and streams
// their progress as a typed event sequence.
package branchdeck

import (
	"go.branchdeck.dev/engine/internal/classify"
)

// VirtualBranch identifies the ref a partition's rewritten commits are
// published under.
type VirtualBranch struct {
	UserPrefix string
	Key        classify.Key
}

// Ref reports the fully qualified ref name for the virtual branch.
func (b VirtualBranch) Ref() string {
	return "refs/heads/" + b.UserPrefix + "/virtual/" + b.Key.String()
}

// ArchivedBranch identifies the ref a virtual branch is moved to once
// the Integration Detector finds it subsumed by mainline.
type ArchivedBranch struct {
	UserPrefix string
	Key        classify.Key
	Date       string // UTC, YYYY-MM-DD
}

// Ref reports the fully qualified ref name for the archived branch.
func (b ArchivedBranch) Ref() string {
	return "refs/heads/" + b.UserPrefix + "/archived/" + b.Date + "/" + b.Key.String()
}

// ConfigError reports a missing or unresolvable repository
// configuration value (branch prefix, origin remote, mainline). Fatal
// for the run (spec.md §7).
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "branchdeck: configuration: " + e.Reason
}

// DriverError wraps a failure from the Git Driver itself (executable
// not found, subprocess spawn failed) that aborts the whole run, as
// opposed to a per-partition failure (spec.md §7).
type DriverError struct {
	Op  string
	Err error
}

func (e *DriverError) Error() string {
	return "branchdeck: " + e.Op + ": " + e.Err.Error()
}

func (e *DriverError) Unwrap() error { return e.Err }

package git

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/Masterminds/semver/v3"
)

// ErrUnsupportedFeature is returned when the installed git binary is too
// old for a requested operation.
var ErrUnsupportedFeature = errors.New("unsupported by installed git version")

var versionPattern = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// GitVersion reports the version of the git binary the Driver is shelling
// out to. The result is memoized: the version cannot change within a
// single run, and repeated `git --version` calls would otherwise be spent
// on every MergeTree invocation's capability check.
func (r *Repository) GitVersion(ctx context.Context) (*semver.Version, error) {
	r.versionOnce.Do(func() {
		out, err := r.gitCmd(ctx, "--version").OutputString(r.exec)
		if err != nil {
			r.versionErr = fmt.Errorf("git --version: %w", err)
			return
		}

		match := versionPattern.FindString(out)
		if match == "" {
			r.versionErr = fmt.Errorf("could not parse git version from %q", out)
			return
		}

		v, err := semver.NewVersion(match)
		if err != nil {
			r.versionErr = fmt.Errorf("parse git version %q: %w", match, err)
			return
		}
		r.version = v
	})
	return r.version, r.versionErr
}

// requireVersion returns ErrUnsupportedFeature if the installed git is
// older than min.
func (r *Repository) requireVersion(ctx context.Context, min *semver.Version, feature string) error {
	v, err := r.GitVersion(ctx)
	if err != nil {
		return fmt.Errorf("determine git version: %w", err)
	}
	if v.LessThan(min) {
		return fmt.Errorf("%s requires git >= %s, found %s: %w", feature, min, v, ErrUnsupportedFeature)
	}
	return nil
}

var minMergeTreeExplicitBase = semver.MustParse("2.45.0")

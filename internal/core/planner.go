package core

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Planner decides resource eligibility against a fixed project root.
type Planner struct {
	// ProjectRoot is the directory logical paths are relative to.
	ProjectRoot string
}

// NewPlanner creates a Planner rooted at projectRoot.
func NewPlanner(projectRoot string) *Planner {
	return &Planner{ProjectRoot: projectRoot}
}

// Plan turns a logical path into a ResourceSpec.
//
// A path that does not exist yields an error wrapping ErrMissingInput; the
// caller is expected to skip the resource and continue. Any other stat
// failure, or a path naming a directory, is an ErrIO failure.
//
// Only existence is checked here; readability is proven by the encoder.
func (p *Planner) Plan(logicalPath string) (ResourceSpec, error) {
	spec, err := Describe(logicalPath)
	if err != nil {
		return ResourceSpec{}, err
	}

	abs := p.AbsPath(spec)
	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ResourceSpec{}, missingf(spec.Path(), err)
		}
		return ResourceSpec{}, ioError(spec.Path(), "stat", err)
	}
	if info.IsDir() {
		return ResourceSpec{}, ioError(spec.Path(), "stat", errors.New("is a directory"))
	}
	return spec, nil
}

// AbsPath resolves a spec's logical path under the project root.
func (p *Planner) AbsPath(spec ResourceSpec) string {
	return filepath.Join(append([]string{p.ProjectRoot}, spec.LogicalPath...)...)
}

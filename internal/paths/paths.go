// Package paths resolves the pvdash installation layout.
//
// The PVDASH_PATH environment variable names the installation root. Two
// directories are derived from it: bin/ holds auxiliary scripts invoked
// by action and script-backed fields, and pages/ holds the YAML page
// documents. Startup fails immediately when the variable is unset.
package paths

import (
	"fmt"
	"os"
	"path/filepath"
)

// RootEnvVar is the required environment variable naming the
// installation root.
const RootEnvVar = "PVDASH_PATH"

const (
	binDirName   = "bin"
	pagesDirName = "pages"
)

// Layout describes the resolved installation directories.
type Layout struct {
	Root  string
	Bin   string
	Pages string
}

// Resolve reads PVDASH_PATH and derives the bin and pages directories.
// It returns an error when the variable is unset or empty; callers are
// expected to treat that as fatal before any other work happens.
func Resolve() (Layout, error) {
	root := os.Getenv(RootEnvVar)
	if root == "" {
		return Layout{}, fmt.Errorf("%s environment variable not defined, please define it in your shell profile", RootEnvVar)
	}

	return Layout{
		Root:  root,
		Bin:   filepath.Join(root, binDirName),
		Pages: filepath.Join(root, pagesDirName),
	}, nil
}

// ResolveDocument resolves a page document argument. A bare filename is
// looked up in the pages directory first; when no file exists there the
// argument is used as a literal path.
func (l Layout) ResolveDocument(name string) string {
	candidate := filepath.Join(l.Pages, name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return name
}

// ResolveScript resolves an auxiliary command name. Commands present in
// the bin directory win over anything on PATH; the first whitespace-free
// token of the command is what gets looked up.
func (l Layout) ResolveScript(command string) string {
	candidate := filepath.Join(l.Bin, command)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return command
}

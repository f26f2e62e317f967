// Package boundary confines directory changes and working directories to a
// single root. Paths are resolved against the session's current directory
// and canonicalized through symlinks before they are compared with the root,
// so /var and /private/var style aliases compare equal and a symlink inside
// the root cannot lead outside it.
package boundary

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Kind distinguishes why a path was refused. The remedies differ: a path
// outside the boundary can never be used, a missing one might be created.
type Kind string

const (
	KindOutside  Kind = "outside boundary"
	KindNotFound Kind = "target does not exist"
	KindInvalid  Kind = "invalid path"
)

// Rejection is returned when a requested path may not be used.
type Rejection struct {
	Kind      Kind
	Requested string
	Resolved  string
	Root      string
}

func (e *Rejection) Error() string {
	switch e.Kind {
	case KindOutside:
		return fmt.Sprintf("%s: %q resolves to %s, which is not under %s", e.Kind, e.Requested, e.Resolved, e.Root)
	case KindNotFound:
		return fmt.Sprintf("%s: no directory at %s", e.Kind, e.Resolved)
	default:
		return fmt.Sprintf("%s: %q", e.Kind, e.Requested)
	}
}

// Resolver checks paths against a fixed root. It is immutable and safe for
// concurrent use.
type Resolver struct {
	root   string
	escape bool
}

// New creates a Resolver. Unless escape is set, root must be an existing
// directory; it is stored in canonical form. With escape set every path is
// accepted and root is informational only.
func New(root string, escape bool) (*Resolver, error) {
	if escape {
		if c, err := Canonicalize(root); err == nil {
			root = c
		}
		return &Resolver{root: root, escape: true}, nil
	}

	if strings.TrimSpace(root) == "" {
		return nil, errors.New("boundary root is empty")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("boundary root %q: %w", root, err)
	}
	canonical, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return nil, fmt.Errorf("boundary root %q: %w", root, err)
	}
	info, err := os.Stat(canonical)
	if err != nil {
		return nil, fmt.Errorf("boundary root %q: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("boundary root %q is not a directory", root)
	}
	return &Resolver{root: canonical}, nil
}

// Root returns the canonical boundary root.
func (r *Resolver) Root() string {
	return r.root
}

// Escaped reports whether boundary enforcement is disabled.
func (r *Resolver) Escaped() bool {
	return r.escape
}

// Resolve turns requested into an absolute directory path relative to cwd.
// It returns a *Rejection when the path is outside the root or no directory
// exists there, and a plain error when the filesystem could not be queried.
func (r *Resolver) Resolve(cwd, requested string) (string, error) {
	if strings.ContainsRune(requested, 0) {
		return "", &Rejection{Kind: KindInvalid, Requested: requested, Root: r.root}
	}

	target, err := join(cwd, requested)
	if err != nil {
		return "", err
	}
	if r.escape {
		return target, nil
	}

	resolved, err := Canonicalize(target)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", target, err)
	}
	if !Within(r.root, resolved) {
		return "", &Rejection{Kind: KindOutside, Requested: requested, Resolved: resolved, Root: r.root}
	}

	info, err := os.Stat(resolved)
	switch {
	case err == nil && info.IsDir():
		return resolved, nil
	case err == nil, missing(err):
		return "", &Rejection{Kind: KindNotFound, Requested: requested, Resolved: resolved, Root: r.root}
	default:
		return "", fmt.Errorf("stat %s: %w", resolved, err)
	}
}

// Contains reports whether an already canonical path is inside the root.
// With escape set everything is inside.
func (r *Resolver) Contains(path string) bool {
	return r.escape || Within(r.root, path)
}

// Within reports whether path equals root or lies below it. Both must be
// clean absolute paths. A bare prefix is not enough: /tmp2 is not under /tmp.
func Within(root, path string) bool {
	if path == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(path, prefix)
}

// Canonicalize makes path absolute and resolves symlinks. When the path does
// not exist, or passes through a non-directory, the deepest existing ancestor
// is resolved and the missing tail is appended unchanged.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !missing(err) {
		return "", err
	}

	var tail []string
	dir := abs
	for {
		parent := filepath.Dir(dir)
		tail = append([]string{filepath.Base(dir)}, tail...)
		if parent == dir {
			return abs, nil
		}
		dir = parent

		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, tail...)...), nil
		}
		if !missing(err) {
			return "", err
		}
	}
}

// missing reports whether err means nothing exists at the path, including
// a path that runs through a regular file.
func missing(err error) bool {
	return errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}

// join resolves requested against cwd, expanding a leading ~ to the home
// directory. An empty request means cwd itself.
func join(cwd, requested string) (string, error) {
	p := strings.TrimSpace(requested)
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("expand ~: %w", err)
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	if p == "" {
		p = cwd
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(cwd, p)
	}
	return filepath.Clean(p), nil
}

package template

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// TemplateLoader resolves template names to source text for the
// extends and include directives. parent is the name of the referencing
// template, or empty for a top-level load.
type TemplateLoader interface {
	Source(name, parent string) (resolved, src string, err error)
}

// Loader reads templates from a root directory and caches compiled
// templates by resolved name. The cache grows monotonically and is
// never evicted; it lives as long as the Loader. Relative references
// from one template to another resolve against the referencing
// template's directory but are only adopted when the normalized path
// stays inside the root.
type Loader struct {
	root string
	opts []Option

	mu    sync.Mutex
	cache map[string]*Template
}

// NewLoader creates a Loader rooted at dir. The options apply to every
// template it compiles.
func NewLoader(dir string, opts ...Option) (*Loader, error) {
	root, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving template root: %w", err)
	}
	return &Loader{root: root, opts: opts, cache: map[string]*Template{}}, nil
}

// Root returns the sandbox root directory.
func (l *Loader) Root() string { return l.root }

// Load returns the compiled template for name, compiling and caching it
// on first use. Compilation failures are returned and never cached.
// Referenced templates are compiled inline by the generator, which
// resolves them through Source.
func (l *Loader) Load(name string) (*Template, error) {
	l.mu.Lock()
	t, ok := l.cache[name]
	l.mu.Unlock()
	if ok {
		return t, nil
	}

	src, err := l.read(name)
	if err != nil {
		return nil, err
	}
	t, err = New(name, src, l, l.opts...)
	if err != nil {
		return nil, fmt.Errorf("compiling template %s: %w", name, err)
	}

	// Insert-if-absent: concurrent misses compile identical templates,
	// so keeping the first insert is enough.
	l.mu.Lock()
	if prev, ok := l.cache[name]; ok {
		t = prev
	} else {
		l.cache[name] = t
	}
	l.mu.Unlock()
	return t, nil
}

// Source implements TemplateLoader for the code generator.
func (l *Loader) Source(name, parent string) (string, string, error) {
	resolved := l.resolve(name, parent)
	src, err := l.read(resolved)
	if err != nil {
		return "", "", err
	}
	return resolved, src, nil
}

// resolve maps a possibly parent-relative name to a root-relative one.
// Inline parents (names starting with "<") and absolute names opt out;
// a resolution escaping the root falls back to the name unchanged.
func (l *Loader) resolve(name, parent string) string {
	if parent == "" || strings.HasPrefix(parent, "<") ||
		strings.HasPrefix(parent, "/") || strings.HasPrefix(name, "/") {
		return name
	}
	dir := filepath.Dir(filepath.Join(l.root, parent))
	resolved := filepath.Clean(filepath.Join(dir, name))
	if strings.HasPrefix(resolved, l.root+string(filepath.Separator)) {
		return resolved[len(l.root)+1:]
	}
	return name
}

func (l *Loader) read(name string) (string, error) {
	path := filepath.Clean(filepath.Join(l.root, name))
	if !strings.HasPrefix(path, l.root+string(filepath.Separator)) {
		return "", ErrTemplateNotFound{Name: name}
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrTemplateNotFound{Name: name}
		}
		return "", fmt.Errorf("reading template %s: %w", name, err)
	}
	return string(b), nil
}

// FSLoader is a Loader over an fs.FS, typically an embedded template
// set. Names are slash paths; references escaping the tree fall back to
// the unresolved name.
type FSLoader struct {
	fsys fs.FS
	opts []Option

	mu    sync.Mutex
	cache map[string]*Template
}

func NewFSLoader(fsys fs.FS, opts ...Option) *FSLoader {
	return &FSLoader{fsys: fsys, opts: opts, cache: map[string]*Template{}}
}

func (l *FSLoader) Load(name string) (*Template, error) {
	name = path.Clean(name)

	l.mu.Lock()
	t, ok := l.cache[name]
	l.mu.Unlock()
	if ok {
		return t, nil
	}

	src, err := l.read(name)
	if err != nil {
		return nil, err
	}
	t, err = New(name, src, l, l.opts...)
	if err != nil {
		return nil, fmt.Errorf("compiling template %s: %w", name, err)
	}

	l.mu.Lock()
	if prev, ok := l.cache[name]; ok {
		t = prev
	} else {
		l.cache[name] = t
	}
	l.mu.Unlock()
	return t, nil
}

func (l *FSLoader) Source(name, parent string) (string, string, error) {
	resolved := l.resolve(name, parent)
	src, err := l.read(resolved)
	if err != nil {
		return "", "", err
	}
	return resolved, src, nil
}

func (l *FSLoader) resolve(name, parent string) string {
	if parent == "" || strings.HasPrefix(parent, "<") {
		return name
	}
	resolved := path.Clean(path.Join(path.Dir(parent), name))
	if resolved == ".." || strings.HasPrefix(resolved, "../") {
		return name
	}
	return resolved
}

func (l *FSLoader) read(name string) (string, error) {
	if !fs.ValidPath(name) {
		return "", ErrTemplateNotFound{Name: name}
	}
	b, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrTemplateNotFound{Name: name}
		}
		return "", fmt.Errorf("reading template %s: %w", name, err)
	}
	return string(b), nil
}

// MemoryLoader maps template names to source text. It compiles on
// every Load and is meant for tests and inline fixtures.
type MemoryLoader map[string]string

func (m MemoryLoader) Load(name string, opts ...Option) (*Template, error) {
	src, ok := m[name]
	if !ok {
		return nil, ErrTemplateNotFound{Name: name}
	}
	return New(name, src, m, opts...)
}

func (m MemoryLoader) Source(name, parent string) (string, string, error) {
	src, ok := m[name]
	if !ok {
		return "", "", ErrTemplateNotFound{Name: name}
	}
	return name, src, nil
}

package template

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
)

func writeTemplates(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, src := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func TestLoaderLoadAndRender(t *testing.T) {
	dir := writeTemplates(t, map[string]string{"hello.txt": "Hello {{ name }}!"})
	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	tmpl, err := loader.Load("hello.txt")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out, err := tmpl.Render(Context{"name": StringValue("World")})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hello World!" {
		t.Fatalf("got %q", out)
	}
}

func TestLoaderCachesCompiled(t *testing.T) {
	dir := writeTemplates(t, map[string]string{"a.txt": "x"})
	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	t1, err := loader.Load("a.txt")
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	t2, err := loader.Load("a.txt")
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if t1 != t2 {
		t.Fatal("second load did not hit the cache")
	}
}

func TestLoaderCompileErrorNotCached(t *testing.T) {
	dir := writeTemplates(t, map[string]string{"bad.txt": "{% if x %}no end"})
	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	if _, err := loader.Load("bad.txt"); err == nil {
		t.Fatal("broken template compiled")
	}
	// Fixing the file on disk must take effect on the next load.
	if err := os.WriteFile(filepath.Join(dir, "bad.txt"), []byte("{% if x %}y{% end %}"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	if _, err := loader.Load("bad.txt"); err != nil {
		t.Fatalf("fixed template still failing: %v", err)
	}
}

func TestLoaderMissingTemplate(t *testing.T) {
	loader, err := NewLoader(t.TempDir())
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	_, err = loader.Load("ghost.txt")
	var nf ErrTemplateNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("want ErrTemplateNotFound, got %v", err)
	}
}

func TestLoaderRelativeResolution(t *testing.T) {
	dir := writeTemplates(t, map[string]string{
		"sub/page.txt": "{% include 'part.txt' %}+{% include '../shared.txt' %}",
		"sub/part.txt": "P",
		"shared.txt":   "S",
		"part.txt":     "WRONG",
	})
	loader, err := NewLoader(dir)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	tmpl, err := loader.Load("sub/page.txt")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out, err := tmpl.Render(Context{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "P+S" {
		t.Fatalf("got %q", out)
	}
}

func TestLoaderSandboxEscape(t *testing.T) {
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	root := filepath.Join(outside, "root")
	if err := os.MkdirAll(root, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	loader, err := NewLoader(root)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	_, err = loader.Load("../secret.txt")
	var nf ErrTemplateNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("escape not rejected: %v", err)
	}
}

func TestLoaderSandboxEscapeViaInclude(t *testing.T) {
	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.txt"), []byte("secret"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	root := filepath.Join(outside, "root")
	if err := os.MkdirAll(filepath.Join(root, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	page := "{% include '../../secret.txt' %}"
	if err := os.WriteFile(filepath.Join(root, "sub", "page.txt"), []byte(page), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	loader, err := NewLoader(root)
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	_, err = loader.Load("sub/page.txt")
	var nf ErrTemplateNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("escape not rejected: %v", err)
	}
}

func TestLoaderOptionsApply(t *testing.T) {
	dir := writeTemplates(t, map[string]string{"raw.txt": "{{ v }}"})
	loader, err := NewLoader(dir, Autoescape(false))
	if err != nil {
		t.Fatalf("new loader: %v", err)
	}
	tmpl, err := loader.Load("raw.txt")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out, err := tmpl.Render(Context{"v": StringValue("<b>")})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "<b>" {
		t.Fatalf("got %q", out)
	}
}

func TestFSLoader(t *testing.T) {
	fsys := fstest.MapFS{
		"base.txt":  {Data: []byte(`<{% block "m" %}d{% end %}>`)},
		"child.txt": {Data: []byte(`{% extends "base.txt" %}{% block "m" %}c{% end %}`)},
	}
	loader := NewFSLoader(fsys)
	tmpl, err := loader.Load("child.txt")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	out, err := tmpl.Render(Context{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "<c>" {
		t.Fatalf("got %q", out)
	}
}

func TestFSLoaderRejectsEscape(t *testing.T) {
	loader := NewFSLoader(fstest.MapFS{"a.txt": {Data: []byte("x")}})
	_, err := loader.Load("../a.txt")
	var nf ErrTemplateNotFound
	if !errors.As(err, &nf) {
		t.Fatalf("want ErrTemplateNotFound, got %v", err)
	}
}

func TestFSLoaderCaches(t *testing.T) {
	loader := NewFSLoader(fstest.MapFS{"a.txt": {Data: []byte("x")}})
	t1, err := loader.Load("a.txt")
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	t2, err := loader.Load("a.txt")
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if t1 != t2 {
		t.Fatal("second load did not hit the cache")
	}
}

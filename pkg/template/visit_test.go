package template

import (
	"errors"
	"testing"
)

type countVisitor struct {
	exprs int
}

func (c *countVisitor) Visit(n Node) error {
	if _, ok := n.(*Expression); ok {
		c.exprs++
	}
	return nil
}

func TestWalkVisitsNestedNodes(t *testing.T) {
	tree, err := Parse("t.txt", `{{ a }}{% if x %}{{ b }}{% apply upper %}{{ c }}{% end %}{% end %}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	v := &countVisitor{}
	if err := Walk(v, tree); err != nil {
		t.Fatalf("walk error: %v", err)
	}
	if v.exprs != 3 {
		t.Fatalf("want 3 expressions, got %d", v.exprs)
	}
}

type stopVisitor struct{ seen int }

var errStop = errors.New("stop")

func (s *stopVisitor) Visit(n Node) error {
	s.seen++
	if s.seen == 2 {
		return errStop
	}
	return nil
}

func TestWalkStopsOnError(t *testing.T) {
	tree, err := Parse("t.txt", "a{{ b }}c")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	v := &stopVisitor{}
	if err := Walk(v, tree); !errors.Is(err, errStop) {
		t.Fatalf("want errStop, got %v", err)
	}
	if v.seen != 2 {
		t.Fatalf("visited %d nodes after stop", v.seen)
	}
}

package validator

import (
	"errors"
	"testing"
)

func TestAll(t *testing.T) {
	if err := All(nil, nil); err != nil {
		t.Fatalf("all nil: %v", err)
	}
	want := errors.New("boom")
	if err := All(nil, want, errors.New("later")); err != want {
		t.Fatalf("got %v", err)
	}
}

func TestNotEmpty(t *testing.T) {
	if err := NotEmpty("x", "field"); err != nil {
		t.Fatalf("non-empty: %v", err)
	}
	if err := NotEmpty("", "field"); err == nil {
		t.Fatal("empty accepted")
	}
}

func TestOneOf(t *testing.T) {
	allowed := []string{"basic", "starlark"}
	if err := OneOf("basic", allowed, "evaluator"); err != nil {
		t.Fatalf("allowed value: %v", err)
	}
	if err := OneOf("", allowed, "evaluator"); err != nil {
		t.Fatalf("zero value should pass: %v", err)
	}
	if err := OneOf("jinja", allowed, "evaluator"); err == nil {
		t.Fatal("disallowed value accepted")
	}
}

func TestNoDuplicates(t *testing.T) {
	if err := NoDuplicates([]int{1, 2, 3}, "ids"); err != nil {
		t.Fatalf("unique: %v", err)
	}
	if err := NoDuplicates([]int{1, 2, 1}, "ids"); err == nil {
		t.Fatal("duplicate accepted")
	}
}

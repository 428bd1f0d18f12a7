package template

import (
	"errors"
	"strings"
	"testing"
)

func TestParseTextOnly(t *testing.T) {
	tree, err := Parse("t.txt", "just some text")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(tree.Chunks) != 1 {
		t.Fatalf("want 1 node, got %d", len(tree.Chunks))
	}
	tn, ok := tree.Chunks[0].(*Text)
	if !ok || tn.Content != "just some text" {
		t.Fatalf("node0 not Text: %#v", tree.Chunks[0])
	}
}

func TestParseTextAndExpression(t *testing.T) {
	tree, err := Parse("t.txt", "Hello {{ name }}!")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(tree.Chunks) != 3 {
		t.Fatalf("want 3 nodes, got %d", len(tree.Chunks))
	}
	if tn, ok := tree.Chunks[0].(*Text); !ok || tn.Content != "Hello " {
		t.Fatalf("node0 not Text('Hello '): %#v", tree.Chunks[0])
	}
	en, ok := tree.Chunks[1].(*Expression)
	if !ok || en.Code != "name" || !en.Escape {
		t.Fatalf("node1 not escaped Expression(name): %#v", tree.Chunks[1])
	}
	if tn, ok := tree.Chunks[2].(*Text); !ok || tn.Content != "!" {
		t.Fatalf("node2 not Text('!'): %#v", tree.Chunks[2])
	}
}

func TestParseLoneBrace(t *testing.T) {
	tree, err := Parse("t.txt", "a { b } c {")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(tree.Chunks) != 1 {
		t.Fatalf("want 1 node, got %d", len(tree.Chunks))
	}
	if tn, ok := tree.Chunks[0].(*Text); !ok || tn.Content != "a { b } c {" {
		t.Fatalf("lone braces not kept as text: %#v", tree.Chunks[0])
	}
}

func TestParseControlNesting(t *testing.T) {
	tree, err := Parse("t.txt", "{% if a %}x{% elif b %}y{% else %}z{% end %}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	cb, ok := tree.Chunks[0].(*ControlBlock)
	if !ok || cb.Kind != KindIf || cb.Header != "if a" {
		t.Fatalf("not an if ControlBlock: %#v", tree.Chunks[0])
	}
	// x, elif, y, else, z
	if len(cb.Body.Chunks) != 5 {
		t.Fatalf("want 5 body chunks, got %d", len(cb.Body.Chunks))
	}
	ib, ok := cb.Body.Chunks[1].(*IntermediateControlBlock)
	if !ok || ib.Code != "elif b" {
		t.Fatalf("chunk1 not elif: %#v", cb.Body.Chunks[1])
	}
	if ib, ok := cb.Body.Chunks[3].(*IntermediateControlBlock); !ok || ib.Code != "else" {
		t.Fatalf("chunk3 not else: %#v", cb.Body.Chunks[3])
	}
}

func TestParseLeafDirectives(t *testing.T) {
	tree, err := Parse("t.txt",
		`{% extends "base.html" %}{% include 'part.html' %}{% set x = 1 %}{% import json %}{% yield d %}`)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(tree.Chunks) != 5 {
		t.Fatalf("want 5 nodes, got %d", len(tree.Chunks))
	}
	if eb, ok := tree.Chunks[0].(*ExtendsBlock); !ok || eb.Parent != "base.html" {
		t.Fatalf("node0 not Extends(base.html): %#v", tree.Chunks[0])
	}
	if ib, ok := tree.Chunks[1].(*IncludeBlock); !ok || ib.Child != "part.html" {
		t.Fatalf("node1 not Include(part.html): %#v", tree.Chunks[1])
	}
	if sn, ok := tree.Chunks[2].(*Statement); !ok || sn.Code != "x = 1" {
		t.Fatalf("node2 not Statement(x = 1): %#v", tree.Chunks[2])
	}
	if sn, ok := tree.Chunks[3].(*Statement); !ok || sn.Code != "import json" {
		t.Fatalf("node3 not Statement(import json): %#v", tree.Chunks[3])
	}
	if yn, ok := tree.Chunks[4].(*YieldExpression); !ok || yn.Code != "d" {
		t.Fatalf("node4 not Yield(d): %#v", tree.Chunks[4])
	}
}

func TestParseCommentDiscarded(t *testing.T) {
	tree, err := Parse("t.txt", "a{% comment anything at all %}b")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	if len(tree.Chunks) != 2 {
		t.Fatalf("comment not discarded: %#v", tree.Chunks)
	}
}

func TestParseLineNumbers(t *testing.T) {
	src := "line one\nline two {{ x }}\n{% if y %}\n{{ z }}{% end %}"
	tree, err := Parse("t.txt", src)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	var expr *Expression
	for _, n := range tree.Chunks {
		if e, ok := n.(*Expression); ok {
			expr = e
		}
	}
	if expr == nil || expr.Line != 2 {
		t.Fatalf("expression line: %#v", expr)
	}
	cb, ok := tree.Chunks[len(tree.Chunks)-1].(*ControlBlock)
	if !ok || cb.Line != 3 {
		t.Fatalf("control block line: %#v", tree.Chunks[len(tree.Chunks)-1])
	}
	inner, ok := cb.Body.Chunks[1].(*Expression)
	if !ok || inner.Line != 4 {
		t.Fatalf("inner expression line: %#v", cb.Body.Chunks)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		kind ParseKind
	}{
		{"unterminated if", "{% if x %}no end", UnterminatedBlock},
		{"unterminated nested", "{% for x in y %}{% if z %}{% end %}", UnterminatedBlock},
		{"unterminated block tag", "{% if x", UnterminatedBlock},
		{"newline in block tag", "{% if\nx %}", UnterminatedBlock},
		{"unterminated expression", "{{ x", UnterminatedExpression},
		{"newline in expression", "{{ x\n}}", UnterminatedExpression},
		{"empty expression", "{{ }}", EmptyExpression},
		{"empty block tag", "{%  %}", EmptyBlockTag},
		{"block missing name", "{% block %}x{% end %}", EmptyBlockTag},
		{"apply missing method", "{% apply %}x{% end %}", EmptyBlockTag},
		{"extends missing path", "{% extends %}", EmptyBlockTag},
		{"set missing statement", "{% set %}", EmptyBlockTag},
		{"yield missing expression", "{% yield %}", EmptyBlockTag},
		{"else outside block", "{% else %}", MisplacedIntermediateBlock},
		{"else inside try", "{% try %}{% else %}{% end %}", MisplacedIntermediateBlock},
		{"elif inside for", "{% for x in y %}{% elif z %}{% end %}", MisplacedIntermediateBlock},
		{"except outside try", "{% if x %}{% except %}{% end %}", MisplacedIntermediateBlock},
		{"extra end", "{% end %}", UnmatchedEnd},
		{"unknown operator", "{% frobnicate x %}", UnknownOperator},
		{"yield in apply", "{% apply f %}{% yield x %}{% end %}", YieldInsideApply},
		{"yield nested in apply", "{% apply f %}{% if a %}{% yield x %}{% end %}{% end %}", YieldInsideApply},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("t.txt", tt.src)
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("want ParseError, got %v", err)
			}
			if perr.Kind != tt.kind {
				t.Fatalf("want kind %d, got %d (%v)", tt.kind, perr.Kind, perr)
			}
		})
	}
}

func TestParseYieldAllowedOutsideApply(t *testing.T) {
	if _, err := Parse("t.txt", "{% if a %}{% yield x %}{% end %}"); err != nil {
		t.Fatalf("yield outside apply should parse: %v", err)
	}
}

func TestPretty(t *testing.T) {
	tree, err := Parse("t.txt", "A{{ x }}{% if y %}B{% end %}")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	s := Pretty(tree)
	for _, want := range []string{"Chunks", "Expression(\"x\")", "Control(\"if y\")"} {
		if !strings.Contains(s, want) {
			t.Fatalf("pretty output missing %q:\n%s", want, s)
		}
	}
}

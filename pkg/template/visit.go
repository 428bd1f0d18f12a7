package template

import (
	"bytes"
	"fmt"
)

// Visitor visits nodes during a Walk.
type Visitor interface {
	Visit(n Node) error
}

// Walk calls v.Visit on n and then on every node below it, depth-first.
func Walk(v Visitor, n Node) error {
	if err := v.Visit(n); err != nil {
		return err
	}
	switch t := n.(type) {
	case *ChunkList:
		for _, c := range t.Chunks {
			if err := Walk(v, c); err != nil {
				return err
			}
		}
	case *ControlBlock:
		return Walk(v, t.Body)
	case *NamedBlock:
		return Walk(v, t.Body)
	case *ApplyBlock:
		return Walk(v, t.Body)
	}
	return nil
}

// Pretty returns a line-oriented string representation of a chunk tree.
func Pretty(tree *ChunkList) string {
	var buf bytes.Buffer
	ppNode(&buf, 0, tree)
	return buf.String()
}

func ppNode(buf *bytes.Buffer, indent int, n Node) {
	ind := func() {
		for i := 0; i < indent; i++ {
			buf.WriteByte(' ')
		}
	}
	switch t := n.(type) {
	case *ChunkList:
		ind()
		buf.WriteString("Chunks\n")
		for _, c := range t.Chunks {
			ppNode(buf, indent+2, c)
		}
	case *Text:
		ind()
		fmt.Fprintf(buf, "Text(%q)\n", t.Content)
	case *Expression:
		ind()
		fmt.Fprintf(buf, "Expression(%q)\n", t.Code)
	case *YieldExpression:
		ind()
		fmt.Fprintf(buf, "Yield(%q)\n", t.Code)
	case *Statement:
		ind()
		fmt.Fprintf(buf, "Statement(%q)\n", t.Code)
	case *ControlBlock:
		ind()
		fmt.Fprintf(buf, "Control(%q)\n", t.Header)
		ppNode(buf, indent+2, t.Body)
	case *IntermediateControlBlock:
		ind()
		fmt.Fprintf(buf, "Intermediate(%q)\n", t.Code)
	case *NamedBlock:
		ind()
		fmt.Fprintf(buf, "Block(%s)\n", t.Name)
		ppNode(buf, indent+2, t.Body)
	case *ApplyBlock:
		ind()
		fmt.Fprintf(buf, "Apply(%s)\n", t.Method)
		ppNode(buf, indent+2, t.Body)
	case *ExtendsBlock:
		ind()
		fmt.Fprintf(buf, "Extends(%q)\n", t.Parent)
	case *IncludeBlock:
		ind()
		fmt.Fprintf(buf, "Include(%q)\n", t.Child)
	}
}

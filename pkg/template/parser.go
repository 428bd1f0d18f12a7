package template

import (
	"slices"
	"strings"
)

// intermediateParents maps an intermediate operator to the block kinds
// it may attach to.
var intermediateParents = map[string][]BlockKind{
	"else":    {KindIf, KindFor, KindWhile},
	"elif":    {KindIf},
	"except":  {KindTry},
	"finally": {KindTry},
}

// Parse parses template source into its chunk tree.
//
// Directive recognition is greedy: the first {{ or {% found wins, even
// inside what looks like an expression, and there is no escape for a
// literal {{ or {%. A lone { is ordinary text.
func Parse(name, src string) (*ChunkList, error) {
	return parse(newReader(name, src), "", false)
}

func parse(r *reader, enclosing BlockKind, insideApply bool) (*ChunkList, error) {
	body := &ChunkList{}
	for {
		// Scan for the next {{ or {%.
		curly := 0
		for {
			curly = r.find("{", curly)
			if curly == -1 || curly+1 == r.remaining() {
				if enclosing != "" {
					return nil, &ParseError{Kind: UnterminatedBlock, Line: r.line, Operator: string(enclosing)}
				}
				if r.remaining() > 0 {
					line := r.line
					body.Chunks = append(body.Chunks, &Text{Content: r.consumeRest(), Line: line})
				}
				return body, nil
			}
			if c := r.at(curly + 1); c != '{' && c != '%' {
				curly++
				continue
			}
			break
		}

		if curly > 0 {
			line := r.line
			body.Chunks = append(body.Chunks, &Text{Content: r.consume(curly), Line: line})
		}

		startBrace := r.consume(2)
		line := r.line

		if startBrace == "{{" {
			end := r.find("}}", 0)
			if end == -1 || r.findBefore("\n", 0, end) != -1 {
				return nil, &ParseError{Kind: UnterminatedExpression, Line: line}
			}
			code := strings.TrimSpace(r.consume(end))
			r.consume(2)
			if code == "" {
				return nil, &ParseError{Kind: EmptyExpression, Line: line}
			}
			body.Chunks = append(body.Chunks, &Expression{Code: code, Escape: true, Line: line})
			continue
		}

		end := r.find("%}", 0)
		if end == -1 || r.findBefore("\n", 0, end) != -1 {
			return nil, &ParseError{Kind: UnterminatedBlock, Line: line}
		}
		contents := strings.TrimSpace(r.consume(end))
		r.consume(2)
		if contents == "" {
			return nil, &ParseError{Kind: EmptyBlockTag, Line: line}
		}

		operator, suffix, _ := strings.Cut(contents, " ")
		suffix = strings.TrimSpace(suffix)

		if parents, ok := intermediateParents[operator]; ok {
			if enclosing == "" || !slices.Contains(parents, enclosing) {
				return nil, &ParseError{Kind: MisplacedIntermediateBlock, Line: line, Operator: operator}
			}
			body.Chunks = append(body.Chunks, &IntermediateControlBlock{Code: contents, Line: line})
			continue
		}

		switch operator {
		case "end":
			if enclosing == "" {
				return nil, &ParseError{Kind: UnmatchedEnd, Line: line}
			}
			return body, nil

		case "comment":
			continue

		case "extends":
			name := strings.Trim(suffix, `"'`)
			if name == "" {
				return nil, &ParseError{Kind: EmptyBlockTag, Line: line, Operator: operator}
			}
			body.Chunks = append(body.Chunks, &ExtendsBlock{Parent: name, Line: line})

		case "include":
			name := strings.Trim(suffix, `"'`)
			if name == "" {
				return nil, &ParseError{Kind: EmptyBlockTag, Line: line, Operator: operator}
			}
			body.Chunks = append(body.Chunks, &IncludeBlock{Child: name, Line: line})

		case "set":
			if suffix == "" {
				return nil, &ParseError{Kind: EmptyBlockTag, Line: line, Operator: operator}
			}
			body.Chunks = append(body.Chunks, &Statement{Code: suffix, Line: line})

		case "import":
			if suffix == "" {
				return nil, &ParseError{Kind: EmptyBlockTag, Line: line, Operator: operator}
			}
			body.Chunks = append(body.Chunks, &Statement{Code: contents, Line: line})

		case "yield":
			if suffix == "" {
				return nil, &ParseError{Kind: EmptyBlockTag, Line: line, Operator: operator}
			}
			if insideApply {
				return nil, &ParseError{Kind: YieldInsideApply, Line: line}
			}
			body.Chunks = append(body.Chunks, &YieldExpression{Code: suffix, Line: line})

		case "apply", "block", "try", "if", "for", "while":
			blockBody, err := parse(r, BlockKind(operator), insideApply || operator == "apply")
			if err != nil {
				return nil, err
			}
			switch operator {
			case "apply":
				if suffix == "" {
					return nil, &ParseError{Kind: EmptyBlockTag, Line: line, Operator: operator}
				}
				body.Chunks = append(body.Chunks, &ApplyBlock{Method: suffix, Body: blockBody, Line: line})
			case "block":
				name := strings.Trim(suffix, `"'`)
				if name == "" {
					return nil, &ParseError{Kind: EmptyBlockTag, Line: line, Operator: operator}
				}
				body.Chunks = append(body.Chunks, &NamedBlock{Name: name, Body: blockBody, Line: line})
			default:
				body.Chunks = append(body.Chunks, &ControlBlock{Kind: BlockKind(operator), Header: contents, Body: blockBody, Line: line})
			}

		default:
			return nil, &ParseError{Kind: UnknownOperator, Line: line, Operator: operator}
		}
	}
}

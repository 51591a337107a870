package dronescript

import "fmt"

// frame is one open block on the structurer's stack.
type frame struct {
	header *Statement // nil for the root block
	depth  int        // indentation of the header; -1 for the root
	// childDepth is learned from the first child line and then required
	// for every later child. -1 until known.
	childDepth int
	body       *[]*Statement
	// chain is the last if statement appended to this block while an elif
	// or else can still attach to it.
	chain *Statement
}

// structure nests parsed statements into a block tree using indentation
// alone. It returns the root block's statements.
func structure(lines []SourceLine, source string) ([]*Statement, error) {
	var root []*Statement
	stack := []*frame{{depth: -1, childDepth: -1, body: &root}}

	closeTop := func() error {
		top := stack[len(stack)-1]
		if top.childDepth < 0 {
			return newStructuralError(Position{Line: top.header.Line}, fmt.Sprintf("%s block on line %d has no body", top.header.Kind, top.header.Line), source)
		}
		stack = stack[:len(stack)-1]
		return nil
	}

	for _, line := range lines {
		stmts, err := parseLine(line, source)
		if err != nil {
			return nil, err
		}
		depth := line.Indent
		pos := Position{Line: line.Number, Column: line.Indent + 1}

		// A line at or left of an open header closes that block.
		for len(stack) > 1 && depth <= stack[len(stack)-1].depth {
			if err := closeTop(); err != nil {
				return nil, err
			}
		}

		top := stack[len(stack)-1]
		switch {
		case top.childDepth < 0:
			top.childDepth = depth
		case depth > top.childDepth:
			return nil, newStructuralError(pos, fmt.Sprintf("unexpected indent: expected %d, got %d", top.childDepth, depth), source)
		case depth < top.childDepth:
			return nil, newStructuralError(pos, fmt.Sprintf("inconsistent indentation: %d does not match any enclosing block", depth), source)
		}

		for _, stmt := range stmts {
			if err := place(top, stmt, pos, source); err != nil {
				return nil, err
			}
			// A header that carried its body after the colon is complete.
			if stmt.Kind.IsHeader() && len(stmt.Body) == 0 {
				stack = append(stack, &frame{header: stmt, depth: depth, childDepth: -1, body: &stmt.Body})
			}
		}
	}

	for len(stack) > 1 {
		if err := closeTop(); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// place appends stmt to the block, or chains an elif/else onto the block's
// open if.
func place(top *frame, stmt *Statement, pos Position, source string) error {
	switch stmt.Kind {
	case StmtElif, StmtElse:
		if top.chain == nil {
			return newStructuralError(pos, fmt.Sprintf("%s without a matching if at the same indentation", stmt.Kind), source)
		}
		top.chain.Branches = append(top.chain.Branches, stmt)
		if stmt.Kind == StmtElse {
			top.chain = nil
		}
	default:
		*top.body = append(*top.body, stmt)
		top.chain = nil
		if stmt.Kind == StmtIf {
			top.chain = stmt
		}
	}
	return nil
}

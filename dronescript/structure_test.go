package dronescript

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func structureSource(t *testing.T, src string) []*Statement {
	t.Helper()
	lines, err := Scan(src)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	stmts, err := structure(lines, src)
	if err != nil {
		t.Fatalf("structure: %v", err)
	}
	return stmts
}

// shape ignores positions so trees from differently indented sources compare
// equal.
var shape = cmpopts.IgnoreFields(Statement{}, "Line", "Column")

func TestStructureNestsByIndentation(t *testing.T) {
	stmts := structureSource(t, `
for i in range(3):
  if scan() == 'rock':
      print("rock")
  elif i == 1:
      pass
  else:
      harvest()
  right()
water()
`)

	want := []*Statement{
		{Kind: StmtFor, Target: "i", Expr: "range(3)", Body: []*Statement{
			{Kind: StmtIf, Expr: "scan() == 'rock'",
				Body: []*Statement{{Kind: StmtCall, Target: "print", Expr: `print("rock")`}},
				Branches: []*Statement{
					{Kind: StmtElif, Expr: "i == 1", Body: []*Statement{{Kind: StmtPass}}},
					{Kind: StmtElse, Body: []*Statement{{Kind: StmtCall, Target: "harvest", Expr: "harvest()"}}},
				},
			},
			{Kind: StmtCall, Target: "right", Expr: "right()"},
		}},
		{Kind: StmtCall, Target: "water", Expr: "water()"},
	}
	if diff := cmp.Diff(want, stmts, shape); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestStructureDedentClosesEveryDeeperBlock(t *testing.T) {
	stmts := structureSource(t, "while True:\n    for i in range(2):\n        if i:\n            break\nright()\n")
	if len(stmts) != 2 {
		t.Fatalf("expected 2 top-level statements, got %d", len(stmts))
	}
	if stmts[1].Kind != StmtCall || stmts[1].Line != 5 {
		t.Fatalf("expected call on line 5 at top level, got %+v", stmts[1])
	}
}

func TestStructureElifAfterNestedIf(t *testing.T) {
	stmts := structureSource(t, "if a:\n    if b:\n        right()\nelif c:\n    left()\n")
	if len(stmts) != 1 || len(stmts[0].Branches) != 1 {
		t.Fatalf("expected elif chained to outer if, got %+v", stmts)
	}
	if inner := stmts[0].Body[0]; len(inner.Branches) != 0 {
		t.Fatalf("elif must not attach to the nested if")
	}
}

func TestStructureSplitsSemicolonsAndOneLineBodies(t *testing.T) {
	oneLine := structureSource(t, "for i in range(6): right(); harvest()\nif scan() == 'rock': left()\nelse: pass\nwater(); print('done');\n")
	expanded := structureSource(t, `
for i in range(6):
    right()
    harvest()
if scan() == 'rock':
    left()
else:
    pass
water()
print('done')
`)
	if diff := cmp.Diff(expanded, oneLine, shape); diff != "" {
		t.Fatalf("one-line forms differ from the expanded program (-want +got):\n%s", diff)
	}

	body := oneLine[0].Body
	if body[0].Line != 1 || body[0].Column != 20 || body[1].Column != 29 {
		t.Fatalf("unexpected positions for the loop body: %+v %+v", body[0], body[1])
	}
}

func TestStructureErrors(t *testing.T) {
	cases := map[string]struct {
		src  string
		kind SyntaxErrorKind
		line int
		msg  string
	}{
		"dangling elif":         {src: "right()\nelif x:\n    left()\n", kind: StructuralError, line: 2, msg: "elif without a matching if"},
		"elif at wrong depth":   {src: "if x:\n    right()\n    elif y:\n        left()\n", kind: StructuralError, line: 3, msg: "elif without a matching if"},
		"else after else":       {src: "if x:\n    right()\nelse:\n    left()\nelse:\n    up()\n", kind: StructuralError, line: 5, msg: "else without a matching if"},
		"elif after loop":       {src: "for i in range(2):\n    right()\nelif x:\n    up()\n", kind: StructuralError, line: 3, msg: "elif without"},
		"missing body":          {src: "if x:\nright()\n", kind: StructuralError, line: 1, msg: "has no body"},
		"missing body at end":   {src: "right()\nwhile True:\n", kind: StructuralError, line: 2, msg: "has no body"},
		"unexpected indent":     {src: "if x:\n    right()\n        left()\n", kind: StructuralError, line: 3, msg: "unexpected indent"},
		"inconsistent dedent":   {src: "if x:\n    right()\n  left()\n", kind: StructuralError, line: 3, msg: "inconsistent indentation"},
		"unknown header":        {src: "repeat 3:\n    right()\n", kind: StructuralError, line: 1, msg: "unknown block header"},
		"header without colon":  {src: "if x\n    right()\n", kind: StructuralError, line: 1, msg: "must end with ':'"},
		"else with condition":   {src: "if x:\n    right()\nelse y:\n    left()\n", kind: StructuralError, line: 3, msg: "did you mean elif"},
		"class":                 {src: "class Drone:\n    pass\n", kind: SemanticTranslationError, line: 1, msg: "classes are not supported"},
		"try":                   {src: "try:\n    right()\n", kind: SemanticTranslationError, line: 1, msg: "exception handling"},
		"import":                {src: "import os\n", kind: SemanticTranslationError, line: 1, msg: "imports are not supported"},
		"multiple targets":      {src: "a, b = 1, 2\n", kind: SemanticTranslationError, line: 1, msg: "multiple targets"},
		"chained assignment":    {src: "a = b = 1\n", kind: SemanticTranslationError, line: 1, msg: "chained assignment"},
		"index assignment":      {src: "xs[0] = 1\n", kind: SemanticTranslationError, line: 1, msg: "only plain names"},
		"unsupported augmented": {src: "x //= 2\n", kind: SemanticTranslationError, line: 1, msg: "//= operator"},
		"loop unpacking":        {src: "for a, b in pairs:\n    pass\n", kind: SemanticTranslationError, line: 1, msg: "unpacking"},
		"default parameter":     {src: "def go(n=1):\n    pass\n", kind: SemanticTranslationError, line: 1, msg: "default parameter"},
		"empty statement":       {src: "right();; harvest()\n", kind: StructuralError, line: 1, msg: "empty statement"},
		"block after semicolon": {src: "right(); if x: left()\n", kind: StructuralError, line: 1, msg: "if block must start on its own line"},
		"nested one-line block": {src: "if x: for i in y: pass\n", kind: StructuralError, line: 1, msg: "for block must start on its own line"},
		"indent after one-line": {src: "if x: right()\n    left()\n", kind: StructuralError, line: 2, msg: "unexpected indent"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			lines, err := Scan(tc.src)
			if err == nil {
				_, err = structure(lines, tc.src)
			}
			var syntaxErr *SyntaxError
			if !errors.As(err, &syntaxErr) {
				t.Fatalf("expected SyntaxError, got %v", err)
			}
			if syntaxErr.Kind != tc.kind {
				t.Fatalf("expected %s, got %s: %v", tc.kind, syntaxErr.Kind, err)
			}
			if syntaxErr.Line() != tc.line {
				t.Fatalf("expected line %d, got %d: %v", tc.line, syntaxErr.Line(), err)
			}
			if !strings.Contains(syntaxErr.Message, tc.msg) {
				t.Fatalf("expected message containing %q, got %q", tc.msg, syntaxErr.Message)
			}
		})
	}
}

func TestFormatRoundTripPreservesStructure(t *testing.T) {
	sources := []string{
		"right()\nharvest()\n",
		"for i in range(6):\n  right()\n  harvest()\n",
		"def step(n):\n\tif n > 0:\n\t\tright()\n\telif n < 0:\n\t\tleft()\n\telse:\n\t\tpass\n\treturn n\nx=step(1)\n",
		"count = 0\nwhile count < 3:\n        count += 1\n        if count == 2:\n                continue\n        print( count )\n",
		"path = ['down',\n   'right']\nfor step in path:\n if step == 'down':\n  down()\n else:\n  right()\n",
		"for i in range(6): right(); harvest()\nif i: pass\nelse: left()\n",
		"# sweep\nfor i in range(2):  # twice\n  # step\n  right()\npath = ['a',  # first\n  'b']\n# done\n",
	}
	for _, src := range sources {
		first := structureSource(t, src)
		formatted, err := Format(src)
		if err != nil {
			t.Fatalf("format %q: %v", src, err)
		}
		second := structureSource(t, formatted)
		if diff := cmp.Diff(first, second, shape); diff != "" {
			t.Fatalf("round trip changed structure of %q (-before +after):\n%s\nformatted:\n%s", src, diff, formatted)
		}
		again, err := Format(formatted)
		if err != nil {
			t.Fatalf("format formatted: %v", err)
		}
		if again != formatted {
			t.Fatalf("format is not idempotent:\n%s\n---\n%s", formatted, again)
		}
	}
}

func TestFormatCanonicalLayout(t *testing.T) {
	got, err := Format("def go():\n  right()\ngo()\nif True:\n  go()\nelse:\n  pass\n")
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	want := "def go():\n    right()\n\ngo()\nif True:\n    go()\nelse:\n    pass\n"
	if got != want {
		t.Fatalf("format mismatch:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatKeepsComments(t *testing.T) {
	src := `# Harvest the first row.
x = 1  # start
def go():
  # one step
  right()   # east
go()
if x == 1:
    go()
  # before else
else:
    pass
xs = ['a',  # first
      'b']
s = "# not a comment"
# trailing note
`
	want := `# Harvest the first row.
x = 1  # start

def go():
    # one step
    right()  # east

go()
if x == 1:
    go()
# before else
else:
    pass
xs = ['a', 'b']  # first
s = "# not a comment"
# trailing note
`
	got, err := Format(src)
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	if got != want {
		t.Fatalf("format mismatch:\n%s\nwant:\n%s", got, want)
	}
	again, err := Format(got)
	if err != nil {
		t.Fatalf("format formatted: %v", err)
	}
	if again != got {
		t.Fatalf("format is not idempotent:\n%s\n---\n%s", got, again)
	}
}

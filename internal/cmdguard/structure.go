package cmdguard

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// checkSimpleCommand parses line as bash and requires exactly one plain
// command made of literal words: no pipelines, lists, subshells, expansions,
// assignments or redirections.
func checkSimpleCommand(line string) error {
	parser := syntax.NewParser(syntax.KeepComments(false), syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(line), "")
	if err != nil {
		return fmt.Errorf("command line does not parse as a single command: %v", err)
	}
	if len(file.Stmts) != 1 {
		return fmt.Errorf("command line contains %d statements, expected 1", len(file.Stmts))
	}

	stmt := file.Stmts[0]
	if stmt.Negated || stmt.Background || stmt.Coprocess {
		return fmt.Errorf("command line uses job control or negation")
	}
	if len(stmt.Redirs) > 0 {
		return fmt.Errorf("command line contains redirections")
	}

	call, ok := stmt.Cmd.(*syntax.CallExpr)
	if !ok {
		return fmt.Errorf("command line is not a simple command")
	}
	if len(call.Assigns) > 0 {
		return fmt.Errorf("command line contains variable assignments")
	}
	for i, word := range call.Args {
		for _, part := range word.Parts {
			if _, lit := part.(*syntax.Lit); !lit {
				return fmt.Errorf("word %d is not a plain literal", i)
			}
		}
	}
	return nil
}

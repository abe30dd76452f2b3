// Package shellsplit splits a raw shell command line into independent
// top-level commands.
package shellsplit

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/pushguard/push-guard/pkg/shellparse"
)

// Split breaks one shell command string into independent commands on
// top-level "&&" and ";" boundaries. Separators inside quotes or command
// substitutions are not split points. Input that cannot be parsed as shell is
// returned whole, so callers still get to inspect it.
func Split(raw string) []string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil
	}

	file, err := shellparse.Parse(trimmed)
	if err != nil {
		return []string{trimmed}
	}

	printer := syntax.NewPrinter()
	var parts []string
	for _, stmt := range file.Stmts {
		parts = appendStmt(parts, stmt, printer)
	}
	if len(parts) == 0 {
		return []string{trimmed}
	}
	return parts
}

// appendStmt flattens "&&" chains; every other statement form (pipelines,
// "||" chains, subshells, redirections) stays a single command.
func appendStmt(parts []string, stmt *syntax.Stmt, printer *syntax.Printer) []string {
	if bin, ok := stmt.Cmd.(*syntax.BinaryCmd); ok && bin.Op == syntax.AndStmt && len(stmt.Redirs) == 0 {
		parts = appendStmt(parts, bin.X, printer)
		return appendStmt(parts, bin.Y, printer)
	}

	var sb strings.Builder
	if err := printer.Print(&sb, stmt); err != nil {
		return parts
	}
	if s := strings.TrimSpace(sb.String()); s != "" {
		parts = append(parts, s)
	}
	return parts
}

// Package shellparse provides shell command parsing utilities.
package shellparse

import (
	"fmt"
	"path/filepath"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// Parse parses a shell command string into a syntax tree.
func Parse(command string) (*syntax.File, error) {
	parser := syntax.NewParser()
	file, err := parser.Parse(strings.NewReader(command), "")
	if err != nil {
		return nil, fmt.Errorf("failed to parse command: %w", err)
	}
	return file, nil
}

// Calls extracts every command call under a node, including calls nested in
// pipelines and substitutions.
func Calls(node syntax.Node) []*syntax.CallExpr {
	var calls []*syntax.CallExpr
	syntax.Walk(node, func(node syntax.Node) bool {
		if call, ok := node.(*syntax.CallExpr); ok {
			calls = append(calls, call)
		}
		return true
	})
	return calls
}

// WordToString converts a syntax.Word to string, ignoring dynamic parts.
func WordToString(word *syntax.Word) string {
	s, _ := ResolveStaticWord(word)
	return s
}

// ResolveStaticWord attempts to resolve a word into a static string.
// It returns the resolved string and a boolean indicating if the resolution is
// complete (i.e., the word contained no dynamic parts like variables or
// command substitutions). Callers must treat non-static words conservatively.
func ResolveStaticWord(word *syntax.Word) (val string, isStatic bool) {
	if word == nil {
		return "", true
	}

	var sb strings.Builder
	isStatic = true

	for _, part := range word.Parts {
		switch p := part.(type) {
		case *syntax.Lit:
			sb.WriteString(p.Value)
		case *syntax.SglQuoted:
			sb.WriteString(p.Value)
		case *syntax.DblQuoted:
			for _, subPart := range p.Parts {
				if lit, ok := subPart.(*syntax.Lit); ok {
					sb.WriteString(lit.Value)
				} else {
					// Expansion inside double quotes
					isStatic = false
				}
			}
		default:
			// ParamExp, CmdSubst, ArithmExp, ProcSubst, globs, ...
			isStatic = false
		}
	}

	return sb.String(), isStatic
}

// IsGitCommand checks if a command name refers to git, handling various forms
func IsGitCommand(cmd string) bool {
	if cmd == "git" {
		return true
	}

	// Full paths like /usr/bin/git, /usr/local/bin/git, ./git
	if strings.HasSuffix(cmd, "/git") {
		return true
	}

	// Windows (git.exe)
	if strings.HasSuffix(cmd, "git.exe") || strings.HasSuffix(cmd, "/git.exe") {
		return true
	}

	return false
}

// NormalizeCommandPath normalizes a command path for comparison
func NormalizeCommandPath(cmd string) string {
	base := filepath.Base(filepath.Clean(cmd))
	return strings.TrimSuffix(base, ".exe")
}

// Package pushparse classifies shell commands as git push or branch-creation
// invocations and extracts the effective push destination.
//
// The parser is deliberately biased: whenever a git push cannot be confidently
// decomposed into remote and destination, it degrades to an implicit
// destination (and sticky force detection) instead of declaring the command
// irrelevant. A parsing gap must never let a push through unexamined.
package pushparse

import (
	"strings"

	"mvdan.cc/sh/v3/syntax"

	"github.com/pushguard/push-guard/pkg/shellparse"
)

// Kind discriminates the classification of a single shell command.
type Kind int

const (
	// NotRelevant means the command is neither a push nor a branch creation.
	NotRelevant Kind = iota
	// BranchCreated means the command creates a branch (checkout -b / switch -c).
	BranchCreated
	// Push means the command pushes to a remote.
	Push
)

// DestKind discriminates how the push destination was given.
type DestKind int

const (
	// DestImplicit means no branch token was given; the destination is the
	// current branch's upstream (or origin/<current> without one).
	DestImplicit DestKind = iota
	// DestExplicit means a bare branch argument was given.
	DestExplicit
	// DestRefspec means a <src>:<dst> refspec was given.
	DestRefspec
)

// Destination describes where a push lands on the remote.
type Destination struct {
	Kind   DestKind
	Branch string // DestExplicit: the branch argument
	Local  string // DestRefspec: left of the last colon ("" deletes the remote ref)
	Target string // DestRefspec: right of the last colon
}

// IsDeletion reports whether the refspec removes a remote ref.
func (d Destination) IsDeletion() bool {
	return d.Kind == DestRefspec && d.Local == ""
}

// BranchName returns the destination branch name, normalized from a fully
// qualified ref where needed. Empty for implicit destinations and for the
// degenerate "src:" refspec.
func (d Destination) BranchName() string {
	switch d.Kind {
	case DestExplicit:
		return strings.TrimPrefix(d.Branch, "refs/heads/")
	case DestRefspec:
		return strings.TrimPrefix(d.Target, "refs/heads/")
	default:
		return ""
	}
}

// PushSpec is the decomposition of a git push invocation.
type PushSpec struct {
	Remote string // "" when no remote argument was given
	Dest   Destination
	// Extra holds additional refspec destinations when a single push names
	// more than one. Every destination must be checked.
	Extra []Destination
	Force bool
}

// Destinations returns the primary destination followed by any extras.
func (p *PushSpec) Destinations() []Destination {
	return append([]Destination{p.Dest}, p.Extra...)
}

// Classification is the result of inspecting one shell command.
type Classification struct {
	Kind   Kind
	Branch string    // BranchCreated: the new branch name
	Push   *PushSpec // Push: the decomposed invocation
}

// ClassifyAll inspects a single shell command (no cross-command state) and
// returns every git push and branch creation found in it. One command can
// carry several relevant calls ("git push a || git push -f b", pipelines,
// substitutions); all of them must reach the decision engine, so none is
// dropped here. Commands that cannot be parsed as shell fall back to a
// textual scan so obviously push-shaped input is still flagged.
func ClassifyAll(command string) []Classification {
	file, err := shellparse.Parse(command)
	if err != nil {
		if looksLikePush(command) {
			return []Classification{conservativePush(textualForce(command))}
		}
		return nil
	}

	var found []Classification
	for _, call := range shellparse.Calls(file) {
		if c := classifyCall(call); c.Kind != NotRelevant {
			found = append(found, c)
		}
	}
	return found
}

// Classify returns the first relevant classification, for commands known to
// hold a single invocation. Multi-call commands go through ClassifyAll.
func Classify(command string) Classification {
	if found := ClassifyAll(command); len(found) > 0 {
		return found[0]
	}
	return Classification{Kind: NotRelevant}
}

func classifyCall(call *syntax.CallExpr) Classification {
	if len(call.Args) == 0 {
		return Classification{Kind: NotRelevant}
	}

	cmd, cmdStatic := shellparse.ResolveStaticWord(call.Args[0])
	if !cmdStatic {
		// "$GIT push ..." and friends: we cannot name the binary, so fall
		// back to the textual scan over the arguments we can see.
		if looksLikePush(callText(call)) {
			return conservativePush(textualForce(callText(call)))
		}
		return Classification{Kind: NotRelevant}
	}
	if !shellparse.IsGitCommand(cmd) {
		return Classification{Kind: NotRelevant}
	}

	sub, rest, ok := gitSubcommand(call.Args[1:])
	if !ok {
		// Dynamic subcommand ("git $SUB ...") could be a push.
		return conservativePush(argsForce(call.Args[1:]))
	}

	switch sub {
	case "push":
		return parsePush(rest)
	case "checkout":
		if name, ok := createdBranch(rest, "-b", "-B"); ok {
			return Classification{Kind: BranchCreated, Branch: name}
		}
	case "switch":
		if name, ok := createdBranch(rest, "-c", "-C", "--create", "--force-create"); ok {
			return Classification{Kind: BranchCreated, Branch: name}
		}
	}
	return Classification{Kind: NotRelevant}
}

// gitSubcommand skips git's global flags and returns the subcommand plus the
// remaining argument words. ok is false when the subcommand word is dynamic.
func gitSubcommand(args []*syntax.Word) (string, []*syntax.Word, bool) {
	for i := 0; i < len(args); i++ {
		arg, static := shellparse.ResolveStaticWord(args[i])
		if !static {
			return "", nil, false
		}
		if strings.HasPrefix(arg, "-") {
			// -C <path> and -c <name>=<value> take a separate value
			if arg == "-C" || arg == "-c" {
				i++
			}
			continue
		}
		return arg, args[i+1:], true
	}
	return "", nil, true
}

// createdBranch finds the branch name following any of the given creation
// flags, regardless of flag ordering.
func createdBranch(args []*syntax.Word, createFlags ...string) (string, bool) {
	for i := 0; i < len(args); i++ {
		arg, static := shellparse.ResolveStaticWord(args[i])
		if !static {
			continue
		}
		for _, flag := range createFlags {
			if arg != flag || i+1 >= len(args) {
				continue
			}
			name, nameStatic := shellparse.ResolveStaticWord(args[i+1])
			if nameStatic && name != "" && !strings.HasPrefix(name, "-") {
				return name, true
			}
		}
	}
	return "", false
}

// Long push flags that consume the following argument.
var valueFlags = map[string]bool{
	"--push-option":  true,
	"--receive-pack": true,
	"--exec":         true,
	"--repo":         true,
}

// parsePush decomposes the arguments following "git push".
func parsePush(args []*syntax.Word) Classification {
	spec := &PushSpec{Dest: Destination{Kind: DestImplicit}}
	var positionals []string
	deletion := false

	for i := 0; i < len(args); i++ {
		arg, static := shellparse.ResolveStaticWord(args[i])
		if !static {
			// A dynamic token we cannot resolve: the remote/branch can no
			// longer be trusted, so degrade to the implicit destination.
			if strings.HasPrefix(arg, "-f") || strings.HasPrefix(arg, "--force") {
				spec.Force = true
			}
			spec.Dest = Destination{Kind: DestImplicit}
			spec.Extra = nil
			return Classification{Kind: Push, Push: spec}
		}

		switch {
		case arg == "--":
			// everything after is positional
			for _, w := range args[i+1:] {
				v, vs := shellparse.ResolveStaticWord(w)
				if !vs {
					spec.Dest = Destination{Kind: DestImplicit}
					spec.Extra = nil
					return Classification{Kind: Push, Push: spec}
				}
				positionals = append(positionals, v)
			}
			i = len(args)
		case strings.HasPrefix(arg, "--"):
			name := arg
			if eq := strings.IndexByte(arg, '='); eq >= 0 {
				name = arg[:eq]
			}
			switch {
			case strings.HasPrefix(name, "--force"):
				// --force, --force-with-lease[=...], and any unrecognized
				// --force* spelling all count as force.
				spec.Force = true
			case name == "--delete":
				deletion = true
			case valueFlags[name] && name == arg:
				i++ // value in the next token
			}
			// other long flags are skipped, not misparsed as refspecs
		case strings.HasPrefix(arg, "-") && len(arg) > 1:
			cluster := arg[1:]
			if strings.ContainsRune(cluster, 'f') {
				spec.Force = true
			}
			if strings.ContainsRune(cluster, 'd') {
				deletion = true
			}
			if strings.ContainsRune(cluster, 'o') {
				i++ // -o takes a push-option value
			}
		default:
			positionals = append(positionals, arg)
		}
	}

	if len(positionals) > 0 {
		spec.Remote = positionals[0]
	}

	var refspecs []string
	if len(positionals) > 1 {
		refspecs = positionals[1:]
	}
	dests := make([]Destination, 0, len(refspecs))
	for _, rs := range refspecs {
		dests = append(dests, parseRefspec(rs, deletion))
	}

	switch len(dests) {
	case 0:
		if deletion {
			// "git push origin --delete" with no branch: nothing concrete to
			// name, keep the implicit destination.
			spec.Force = true
		}
	default:
		spec.Dest = dests[0]
		spec.Extra = dests[1:]
	}

	return Classification{Kind: Push, Push: spec}
}

// parseRefspec turns one positional push argument into a Destination. A
// refspec splits on its last colon; the right-hand side is where the push
// lands on the remote.
func parseRefspec(arg string, deletion bool) Destination {
	if deletion {
		// "--delete <branch>": equivalent to pushing an empty source
		return Destination{Kind: DestRefspec, Local: "", Target: arg}
	}
	if idx := strings.LastIndexByte(arg, ':'); idx >= 0 {
		return Destination{Kind: DestRefspec, Local: arg[:idx], Target: arg[idx+1:]}
	}
	return Destination{Kind: DestExplicit, Branch: arg}
}

func conservativePush(force bool) Classification {
	return Classification{Kind: Push, Push: &PushSpec{
		Dest:  Destination{Kind: DestImplicit},
		Force: force,
	}}
}

// looksLikePush is the fallback textual scan for input the shell parser
// rejected or words it could not resolve.
func looksLikePush(s string) bool {
	lower := strings.ToLower(s)
	gitIdx := strings.Index(lower, "git")
	pushIdx := strings.Index(lower, "push")
	if gitIdx < 0 || pushIdx < 0 {
		return false
	}
	return pushIdx > gitIdx
}

func textualForce(s string) bool {
	return strings.Contains(s, "--force") || strings.Contains(s, " -f")
}

func argsForce(args []*syntax.Word) bool {
	for _, w := range args {
		arg, _ := shellparse.ResolveStaticWord(w)
		if strings.HasPrefix(arg, "--force") || strings.HasPrefix(arg, "-f") {
			return true
		}
	}
	return false
}

func callText(call *syntax.CallExpr) string {
	var sb strings.Builder
	for _, w := range call.Args {
		arg, _ := shellparse.ResolveStaticWord(w)
		sb.WriteString(arg)
		sb.WriteByte(' ')
	}
	return sb.String()
}

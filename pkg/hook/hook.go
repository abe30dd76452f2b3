// Package hook implements the agent-runtime hook protocol: JSON envelope in
// on stdin, verdict out as an exit code.
package hook

import (
	"encoding/json"
	"io"
	"os"
)

// Exit codes understood by the host. ExitBlock is the soft-block code: the
// host stops the tool call and feeds stderr back to the agent. ExitError is
// any other failure (for example an unreadable state file) and must not be
// conflated with a policy block.
const (
	ExitAllow = 0
	ExitError = 1
	ExitBlock = 2
)

// Input is the PreToolUse envelope. Only the fields push-guard consumes are
// modeled; everything else in the payload is ignored.
type Input struct {
	ToolName  string `json:"tool_name"`
	CWD       string `json:"cwd"`
	ToolInput struct {
		Command string `json:"command"`
	} `json:"tool_input"`
}

// Read decodes a hook envelope.
func Read(r io.Reader) (*Input, error) {
	var input Input
	if err := json.NewDecoder(r).Decode(&input); err != nil {
		return nil, err
	}
	return &input, nil
}

// Block rejects the tool call with the given reasons on stderr.
func Block(message string, reasons []string) {
	_, _ = os.Stderr.WriteString("BLOCKED: " + message + "\n")
	for _, reason := range reasons {
		_, _ = os.Stderr.WriteString("  - " + reason + "\n")
	}
	os.Exit(ExitBlock)
}

// Allow lets the tool call proceed.
func Allow() {
	os.Exit(ExitAllow)
}

// Fail reports a failure that is not a policy verdict.
func Fail(err error) {
	_, _ = os.Stderr.WriteString("push-guard: " + err.Error() + "\n")
	os.Exit(ExitError)
}

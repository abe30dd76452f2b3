package main

import (
	"strings"
	"testing"

	"github.com/pushguard/push-guard/pkg/guard"
)

func TestBlockMessage(t *testing.T) {
	tests := []struct {
		reason      string
		wantPhrases []string
		description string
	}{
		{guard.ReasonForce, []string{"force push to 'main'", "I authorize"}, "force names the branch and the remedy"},
		{guard.ReasonProtected, []string{"'main' is a protected branch", "feature branch"}, "protected suggests a feature branch"},
		{guard.ReasonForeign, []string{"not created by the agent", "push-guard authorize --repo '/r' --branch 'main'"}, "foreign names the authorize command"},
		{guard.ReasonNoDest, []string{"cannot determine"}, "unresolvable destination"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			msg := blockMessage("/r", guard.Decision{Reason: tt.reason, Branch: "main"})
			if !strings.HasPrefix(msg, "BLOCKED:") {
				t.Errorf("message %q does not announce the block", msg)
			}
			for _, phrase := range tt.wantPhrases {
				if !strings.Contains(msg, phrase) {
					t.Errorf("message %q missing %q", msg, phrase)
				}
			}
		})
	}
}

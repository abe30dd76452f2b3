package shellsplit

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		command     string
		want        []string
		description string
	}{
		{"git push", []string{"git push"}, "single command"},
		{"  git push  ", []string{"git push"}, "whitespace trimmed"},
		{"git add . && git push", []string{"git add .", "git push"}, "and chain"},
		{"git add .; git push", []string{"git add .", "git push"}, "semicolon chain"},
		{"a && b && c", []string{"a", "b", "c"}, "three-way and chain"},
		{"a; b && c", []string{"a", "b", "c"}, "mixed separators"},
		{`echo "a && b" && git push`, []string{`echo "a && b"`, "git push"}, "quoted and is not a split point"},
		{`git commit -m "x; y"; git push`, []string{`git commit -m "x; y"`, "git push"}, "quoted semicolon is not a split point"},
		{`echo 'one; two'`, []string{`echo 'one; two'`}, "single quotes"},
		{"a | b && c", []string{"a | b", "c"}, "pipeline stays whole"},
		{"a || b", []string{"a || b"}, "or chain is one command"},
		{"", nil, "empty input"},
	}

	for _, tt := range tests {
		t.Run(tt.description, func(t *testing.T) {
			got := Split(tt.command)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Split(%q) = %#v, want %#v", tt.command, got, tt.want)
			}
		})
	}
}

func TestSplitUnparseableInputReturnedWhole(t *testing.T) {
	// Unclosed quote: the parser fails, but the text must still be handed
	// back for inspection instead of being dropped.
	got := Split(`echo "unclosed && git push`)
	want := []string{`echo "unclosed && git push`}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Split = %#v, want %#v", got, want)
	}
}

package parser

import (
	"strings"
	"testing"
)

func TestTextParser_ParagraphsKeepLineBreaks(t *testing.T) {
	input := "Shall I compare thee to a summer's day?\nThou art more lovely and more temperate:\n\nRough winds do shake the darling buds of May,\n\n\nAnd summer's lease hath all too short a date."
	p := &TextParser{}
	tree, err := p.Parse(strings.NewReader(input), "sonnet18.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if tree.Title != "sonnet18" {
		t.Errorf("expected title %q, got %q", "sonnet18", tree.Title)
	}
	want := []string{
		"Shall I compare thee to a summer's day?\nThou art more lovely and more temperate:",
		"Rough winds do shake the darling buds of May,",
		"And summer's lease hath all too short a date.",
	}
	if len(tree.Children) != len(want) {
		t.Fatalf("expected %d children, got %d", len(want), len(tree.Children))
	}
	for i, w := range want {
		if tree.Children[i].Text != w {
			t.Errorf("child[%d]: expected %q, got %q", i, w, tree.Children[i].Text)
		}
	}
}

func TestTextParser_CRLFAndTrailingSpace(t *testing.T) {
	input := "Ask not what your country can do for you;  \r\nask what you can do for your country.\r\n   \r\nEnd."
	p := &TextParser{}
	tree, err := p.Parse(strings.NewReader(input), "kennedy.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 2 {
		t.Fatalf("expected 2 children, got %d", len(tree.Children))
	}
	want := "Ask not what your country can do for you;\nask what you can do for your country."
	if tree.Children[0].Text != want {
		t.Errorf("expected %q, got %q", want, tree.Children[0].Text)
	}
}

func TestTextParser_EmptyInput(t *testing.T) {
	p := &TextParser{}
	tree, err := p.Parse(strings.NewReader(""), "empty.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tree.Title != "empty" {
		t.Errorf("expected title %q, got %q", "empty", tree.Title)
	}
	if len(tree.Children) != 0 {
		t.Errorf("expected 0 children for empty input, got %d", len(tree.Children))
	}
}

func TestTextParser_StripsBOM(t *testing.T) {
	tree, err := (&TextParser{}).Parse(strings.NewReader("\uFEFFWe hold these truths"), "declaration.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tree.Children) != 1 || tree.Children[0].Text != "We hold these truths" {
		t.Fatalf("unexpected children %+v", tree.Children)
	}
}

package parser

import (
	"reflect"
	"testing"
)

func TestReflow(t *testing.T) {
	page := "Four score and seven years ago our fathers\nbrought forth on this con-\ntinent a new nation.\n\n   \nNow we are engaged in a great civil war,\r\ntesting whether that nation - or any nation -\nso conceived can long endure."
	want := []string{
		"Four score and seven years ago our fathers brought forth on this continent a new nation.",
		"Now we are engaged in a great civil war, testing whether that nation - or any nation - so conceived can long endure.",
	}
	if got := reflow(page); !reflect.DeepEqual(got, want) {
		t.Errorf("reflow mismatch:\n got %q\nwant %q", got, want)
	}
}

func TestReflow_Empty(t *testing.T) {
	if got := reflow(" \n\n\t\n"); len(got) != 0 {
		t.Errorf("expected no paragraphs, got %q", got)
	}
}

func TestTitleFromFilename(t *testing.T) {
	cases := map[string]string{
		"speech.pdf":         "speech",
		"dir/The Raven.docx": "The Raven",
		"archive.tar.gz":     "archive.tar",
		"no-extension":       "no-extension",
	}
	for in, want := range cases {
		if got := titleFromFilename(in); got != want {
			t.Errorf("titleFromFilename(%q) = %q, want %q", in, got, want)
		}
	}
}

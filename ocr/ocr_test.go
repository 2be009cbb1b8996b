package ocr

import (
	"reflect"
	"testing"
)

func TestParagraphs(t *testing.T) {
	got := Paragraphs("  first line\nwrapped\n\n\nsecond\n  \nthird  \n")
	want := []string{"first line wrapped", "second", "third"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Paragraphs = %q, want %q", got, want)
	}
	if Paragraphs(" \n ") != nil {
		t.Error("blank text should give no paragraphs")
	}
}

package domain

import "testing"

func TestParseTags(t *testing.T) {
	cases := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty string", "", nil},
		{"single tag", "noun", []string{"noun"}},
		{"multiple tags", "noun,B2,food", []string{"noun", "B2", "food"}},
		{"whitespace trimmed", " noun , B2 ", []string{"noun", "B2"}},
		{"empty entries dropped", "noun,,B2,", []string{"noun", "B2"}},
		{"case preserved", "Verb,verb", []string{"Verb", "verb"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := ParseTags(c.input)
			if len(got) != len(c.want) {
				t.Fatalf("expected %v, got %v", c.want, got)
			}
			for i := range c.want {
				if got[i] != c.want[i] {
					t.Errorf("position %d: expected %q, got %q", i, c.want[i], got[i])
				}
			}
		})
	}
}

func TestJoinTagsRoundTrip(t *testing.T) {
	tags := []string{"noun", "B2"}
	if got := ParseTags(JoinTags(tags)); len(got) != 2 || got[0] != "noun" || got[1] != "B2" {
		t.Errorf("round trip changed tags: %v", got)
	}
}

func TestHasTag(t *testing.T) {
	card := Flashcard{Tags: []string{"noun", "B2"}}
	if !card.HasTag("noun") {
		t.Error("expected HasTag to find noun")
	}
	if card.HasTag("Noun") {
		t.Error("HasTag must be case-sensitive")
	}
	if card.HasTag("verb") {
		t.Error("did not expect to find verb")
	}
}

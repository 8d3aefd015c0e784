package conversation

import (
	"testing"

	"corvex/models"
)

func TestParseNameFirstAndLast(t *testing.T) {
	for _, device := range []models.DeviceClass{models.DeviceCompact, models.DeviceMedium, models.DeviceFull} {
		name, ok := parseName("Jane Doe", models.PolicyFor(device))
		if !ok {
			t.Fatalf("device %s: expected Jane Doe to parse", device)
		}
		if name.First != "Jane" || name.Last != "Doe" {
			t.Fatalf("device %s: got %q %q, want Jane Doe", device, name.First, name.Last)
		}
	}
}

func TestParseNameSingleTokenLength(t *testing.T) {
	compact := models.PolicyFor(models.DeviceCompact)

	if _, ok := parseName("J", compact); ok {
		t.Fatal("single letter should be rejected on compact")
	}
	name, ok := parseName("Jo", compact)
	if !ok {
		t.Fatal("two-letter single token should be accepted on compact")
	}
	if name.First != "Jo" || name.Last != "" {
		t.Fatalf("got %q %q, want Jo with no last name", name.First, name.Last)
	}

	// The full profile is stricter about single tokens.
	if _, ok := parseName("Jo", models.PolicyFor(models.DeviceFull)); ok {
		t.Fatal("two-letter single token should be rejected on full")
	}
}

func TestParseNameStripsLeadIns(t *testing.T) {
	cases := []string{
		"my name is jane doe",
		"I'm Jane Doe",
		"this is jane doe",
		"jane, doe!",
	}
	for _, input := range cases {
		name, ok := parseName(input, models.PolicyFor(models.DeviceFull))
		if !ok {
			t.Fatalf("%q: expected parse to succeed", input)
		}
		if name.First != "Jane" || name.Last != "Doe" {
			t.Fatalf("%q: got %q %q, want Jane Doe", input, name.First, name.Last)
		}
	}
}

func TestParseNameKeepsUserCasing(t *testing.T) {
	cases := []struct {
		input       string
		first, last string
	}{
		{"Connor McDonald", "Connor", "McDonald"},
		{"my name is Patrick O'Brien", "Patrick", "O'Brien"},
		{"siobhan mcdonald", "Siobhan", "Mcdonald"},
	}
	for _, tc := range cases {
		name, ok := parseName(tc.input, models.PolicyFor(models.DeviceFull))
		if !ok {
			t.Fatalf("%q: expected parse to succeed", tc.input)
		}
		if name.First != tc.first || name.Last != tc.last {
			t.Fatalf("%q: got %q %q, want %q %q", tc.input, name.First, name.Last, tc.first, tc.last)
		}
	}
}

func TestParseNameRejectsEmpty(t *testing.T) {
	for _, input := range []string{"", "   ", "123", "?!"} {
		if _, ok := parseName(input, models.PolicyFor(models.DeviceFull)); ok {
			t.Fatalf("%q: expected parse to fail", input)
		}
	}
}

func TestDisplayName(t *testing.T) {
	if got := (ParsedName{First: "Jane", Last: "Doe"}).DisplayName(); got != "Jane Doe" {
		t.Fatalf("got %q", got)
	}
	if got := (ParsedName{First: "Jo"}).DisplayName(); got != "Jo" {
		t.Fatalf("got %q", got)
	}
}

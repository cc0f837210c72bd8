package hashing

import (
	"fmt"
	"strings"
	"testing"
)

func TestNormalizeContent(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"crlf", "line one\r\nline two", "line one\nline two"},
		{"tabs and runs", "a\t\tb   c", "a b c"},
		{"blank line runs", "a\n\n\n\nb", "a\n\nb"},
		{"trailing whitespace", "  hello  \n", "hello"},
		{"nbsp", "a\u00a0b", "a b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeContent(tt.in); got != tt.want {
				t.Fatalf("NormalizeContent(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestContentHashIgnoresLineEndings(t *testing.T) {
	a := "Good afternoon everyone.\nWelcome to the call."
	b := "Good afternoon   everyone. \r\nWelcome to the call.\r\n"
	if ContentHash(a) != ContentHash(b) {
		t.Fatalf("cosmetically different content produced different hashes")
	}
	if RawHash(a) == RawHash(b) {
		t.Fatalf("raw hashes should differ for different bytes")
	}
}

func transcriptWords(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "segment%d ", i)
	}
	return b.String()
}

func TestGenerateFingerprintShortDocument(t *testing.T) {
	fp := GenerateFingerprint("too short", DefaultShingleSize, DefaultNumHashes)
	if len(fp) != 1 {
		t.Fatalf("expected single whole-document hash, got %d hashes", len(fp))
	}
}

func TestFingerprintNearDuplicate(t *testing.T) {
	base := transcriptWords(300)
	appended := base + " and that concludes our prepared remarks thank you all for joining"

	fpA := GenerateFingerprint(base, DefaultShingleSize, DefaultNumHashes)
	fpB := GenerateFingerprint(appended, DefaultShingleSize, DefaultNumHashes)

	sim := Similarity(fpA, fpB)
	if sim < 0.8 {
		t.Fatalf("appended-sentence variant should stay near-duplicate, got %.3f", sim)
	}
	if self := Similarity(fpA, fpA); self != 1.0 {
		t.Fatalf("self similarity = %.3f, want 1.0", self)
	}
}

func TestSimilarityDisjoint(t *testing.T) {
	fpA := GenerateFingerprint(transcriptWords(100), DefaultShingleSize, DefaultNumHashes)
	fpB := GenerateFingerprint("completely different subject matter entirely unrelated to the first document in every possible way with many extra filler words to pass the shingle minimum", DefaultShingleSize, DefaultNumHashes)
	if sim := Similarity(fpA, fpB); sim != 0 {
		t.Fatalf("disjoint documents similarity = %.3f, want 0", sim)
	}
}

func TestCheckNearDuplicate(t *testing.T) {
	base := transcriptWords(200)
	fp := GenerateFingerprint(base, DefaultShingleSize, DefaultNumHashes)
	other := GenerateFingerprint(transcriptWords(50), DefaultShingleSize, DefaultNumHashes)

	best, found := CheckNearDuplicate(fp, [][]string{other, fp})
	if !found {
		t.Fatalf("expected a match against a non-empty store")
	}
	if best.Index != 1 || best.Similarity != 1.0 {
		t.Fatalf("best = %+v, want index 1 with similarity 1.0", best)
	}

	if _, found := CheckNearDuplicate(fp, nil); found {
		t.Fatalf("empty store should report no match")
	}
}

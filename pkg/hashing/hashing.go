// Package hashing provides canonical content hashing and shingle-based
// near-duplicate fingerprinting for transcript dedup.
package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	DefaultShingleSize = 5
	DefaultNumHashes   = 100
)

var (
	horizontalWS = regexp.MustCompile(`[ \t\x{00A0}]+`)
	blankLines   = regexp.MustCompile(`\n{3,}`)
)

// SHA256Hex returns the hex-encoded SHA-256 digest of s.
func SHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// NormalizeContent canonicalizes text so that cosmetically different
// re-scrapes of the same transcript hash identically: Unicode NFKC,
// all line endings to \n, runs of horizontal whitespace to one space,
// runs of blank lines collapsed, trimmed.
func NormalizeContent(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = horizontalWS.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankLines.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// ContentHash hashes the normalized form of content. Used for dedup.
func ContentHash(content string) string {
	return SHA256Hex(NormalizeContent(content))
}

// RawHash hashes raw bytes unmodified. Used only for forensic proof,
// never for dedup.
func RawHash(raw string) string {
	return SHA256Hex(raw)
}

// GenerateFingerprint builds a min-hash style sketch of content: every
// overlapping shingleSize-word window is hashed, the digests are sorted
// lexicographically and the smallest numHashes are kept. Documents shorter
// than one shingle fall back to a single whole-document hash.
func GenerateFingerprint(content string, shingleSize, numHashes int) []string {
	if shingleSize <= 0 {
		shingleSize = DefaultShingleSize
	}
	if numHashes <= 0 {
		numHashes = DefaultNumHashes
	}

	words := strings.Fields(NormalizeContent(strings.ToLower(content)))
	if len(words) < shingleSize {
		return []string{SHA256Hex(strings.Join(words, " "))}
	}

	seen := make(map[string]struct{})
	hashes := make([]string, 0, len(words)-shingleSize+1)
	for i := 0; i+shingleSize <= len(words); i++ {
		shingle := strings.Join(words[i:i+shingleSize], " ")
		if _, ok := seen[shingle]; ok {
			continue
		}
		seen[shingle] = struct{}{}
		hashes = append(hashes, SHA256Hex(shingle))
	}

	sort.Strings(hashes)
	if len(hashes) > numHashes {
		hashes = hashes[:numHashes]
	}
	return hashes
}

// Similarity computes Jaccard overlap |a∩b| / |a∪b| of two fingerprints.
func Similarity(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	setA := make(map[string]struct{}, len(a))
	for _, h := range a {
		setA[h] = struct{}{}
	}
	union := make(map[string]struct{}, len(a)+len(b))
	for h := range setA {
		union[h] = struct{}{}
	}
	intersection := 0
	for _, h := range b {
		if _, ok := setA[h]; ok {
			intersection++
		}
		union[h] = struct{}{}
	}
	return float64(intersection) / float64(len(union))
}

// Match is the best near-duplicate candidate found by CheckNearDuplicate.
type Match struct {
	Index      int
	Similarity float64
}

// CheckNearDuplicate scans stored fingerprints and returns the closest one.
// found is false when stored is empty.
func CheckNearDuplicate(fp []string, stored [][]string) (best Match, found bool) {
	best.Index = -1
	for i, s := range stored {
		sim := Similarity(fp, s)
		if !found || sim > best.Similarity {
			best = Match{Index: i, Similarity: sim}
			found = true
		}
	}
	return best, found
}

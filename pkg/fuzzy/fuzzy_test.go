package fuzzy

import "testing"

func TestStripLegalSuffixes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"apple inc", "apple"},
		{"abc holdings inc", "abc"},
		{"microsoft corporation", "microsoft"},
		{"the trade desk", "the trade desk"},
		{"co", "co"},
	}
	for _, tt := range tests {
		if got := StripLegalSuffixes(tt.in); got != tt.want {
			t.Fatalf("StripLegalSuffixes(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMatchCompanyName(t *testing.T) {
	tests := []struct {
		name      string
		extracted string
		expected  string
		wantType  MatchType
	}{
		{"suffix stripped exact", "Apple", "Apple Inc.", MatchExact},
		{"punctuation ignored", "Alphabet, Inc.", "alphabet inc", MatchExact},
		{"containment", "Advanced Micro Devices", "Micro Devices", MatchContains},
		{"typo within threshold", "Mircosoft", "Microsoft", MatchFuzzy},
		{"unrelated", "Apple", "Netflix", MatchNone},
		{"empty extracted", "", "Apple", MatchNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mt, score := MatchCompanyName(tt.extracted, tt.expected, 0.7)
			if mt != tt.wantType {
				t.Fatalf("MatchCompanyName(%q, %q) = %s (score %.2f), want %s",
					tt.extracted, tt.expected, mt, score, tt.wantType)
			}
			if mt != MatchNone && (score <= 0 || score > 1) {
				t.Fatalf("score %.2f out of (0,1] for %s match", score, mt)
			}
		})
	}
}

func TestMatchTicker(t *testing.T) {
	if !MatchTicker("aapl", "AAPL") {
		t.Fatalf("ticker match should be case-insensitive")
	}
	if MatchTicker("AAPL", "MSFT") {
		t.Fatalf("different tickers should not match")
	}
}

func TestIsTickerShaped(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"AAPL", true},
		{"brk.b", true},
		{"GOOGL", true},
		{"TOOLONG", false},
		{"12AB", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsTickerShaped(tt.in); got != tt.want {
			t.Fatalf("IsTickerShaped(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestQuarterHandling(t *testing.T) {
	if got := NormalizeQuarter("q3 fiscal 2025 earnings call"); got != "Q3" {
		t.Fatalf("NormalizeQuarter = %q, want Q3", got)
	}
	if NormalizeQuarter("fourth quarter") != "" {
		t.Fatalf("spelled-out quarter should not normalize")
	}
	if !MatchQuarter("Q2", "q2 2024") {
		t.Fatalf("same quarter token should match")
	}
	if MatchQuarter("Q1", "Q4") {
		t.Fatalf("different quarters should not match")
	}
	if n := QuarterNumber("Q4 2025"); n != 4 {
		t.Fatalf("QuarterNumber = %d, want 4", n)
	}
}

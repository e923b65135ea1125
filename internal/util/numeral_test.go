package util

import "testing"

func TestNormalizeNumeral(t *testing.T) {
	n := NewNumeralNormalizer(16)
	cases := []struct {
		input string
		want  string
	}{
		{input: "一", want: "1"},
		{input: "十", want: "10"},
		{input: "十五", want: "15"},
		{input: "二十", want: "20"},
		{input: "二十六", want: "26"},
		{input: "六十五", want: "65"},
		{input: "一百", want: "100"},
		{input: "一百零五", want: "105"},
		{input: "一百一十", want: "110"},
		{input: "一百二十六", want: "126"},
		{input: "三百六十", want: "360"},
		{input: "九百九十六", want: "996"},
		{input: "批", want: "批"},
	}

	for _, tc := range cases {
		t.Run(tc.input, func(t *testing.T) {
			if got := n.Normalize(tc.input); got != tc.want {
				t.Fatalf("Normalize(%q)=%q want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestNormalizeNumeralASCIIPassThrough(t *testing.T) {
	n := NewNumeralNormalizer(16)
	for _, s := range []string{"0", "7", "65", "126", "000123", "99999999999999999999"} {
		if got := n.Normalize(s); got != s {
			t.Fatalf("Normalize(%q)=%q", s, got)
		}
		if got := n.Normalize(n.Normalize(s)); got != s {
			t.Fatalf("not idempotent for %q: %q", s, got)
		}
	}
}

func TestNumeralCacheEviction(t *testing.T) {
	n := NewNumeralNormalizer(2)
	n.Normalize("一")
	n.Normalize("二")
	if n.Len() != 2 {
		t.Fatalf("len=%d", n.Len())
	}
	n.Normalize("三")
	if n.Len() != 1 {
		t.Fatalf("cache not reset, len=%d", n.Len())
	}
	if got := n.Normalize("二"); got != "2" {
		t.Fatalf("got %q after eviction", got)
	}
}

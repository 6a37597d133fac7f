package utils

import (
	"testing"
	"time"
)

func TestAtoiDefault(t *testing.T) {
	cases := []struct {
		s    string
		def  int
		want int
	}{
		{"", 10, 10},
		{"42", 0, 42},
		{"-13", 1, -13},
		{"0012", 99, 12},
		// no trimming
		{"x", 5, 5},
		{" 42", 7, 7},
		// overflow
		{"999999999999999999999999", -1, -1},
	}

	for _, tc := range cases {
		if got := AtoiDefault(tc.s, tc.def); got != tc.want {
			t.Fatalf("AtoiDefault(%q, %d) = %d; want %d", tc.s, tc.def, got, tc.want)
		}
	}
}

func TestTotalPages(t *testing.T) {
	cases := []struct {
		total int64
		size  int
		want  int
	}{
		{0, 20, 0},
		{1, 20, 1},
		{20, 20, 1},
		{21, 20, 2},
		{5, 0, 0},
	}
	for _, tc := range cases {
		if got := TotalPages(tc.total, tc.size); got != tc.want {
			t.Fatalf("TotalPages(%d, %d) = %d; want %d", tc.total, tc.size, got, tc.want)
		}
	}
}

func TestWeakETag(t *testing.T) {
	if got := WeakETag("tx", "u1", 0, nil); got != `W/"tx:u1:0:0"` {
		t.Fatalf("nil latest: %s", got)
	}
	ts := time.Unix(0, 1700000000123456789)
	a := WeakETag("tx", "u1", 3, &ts)
	if a != `W/"tx:u1:3:1700000000123456789"` {
		t.Fatalf("unexpected etag %s", a)
	}
	later := ts.Add(time.Millisecond)
	if WeakETag("tx", "u1", 3, &later) == a {
		t.Fatalf("sub-second updates must change the tag")
	}
}

package main

import (
	"reflect"
	"strings"
	"testing"
)

func TestBuildStatusRowsOrder(t *testing.T) {
	rows := buildStatusRows(map[string]int{"error": 1, "archived": 4, "pending": 3, "completed": 2})
	want := [][]string{
		{"Pending", "3"},
		{"Completed", "2"},
		{"Error", "1"},
		{"Archived", "4"},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("unexpected rows %v", rows)
	}
}

func TestDisplayLabel(t *testing.T) {
	cases := map[string]string{
		"custom_encode":  "Custom Encode",
		"hardware-apple": "Hardware Apple",
		"":               "",
		"exact-id":       "Exact Id",
	}
	for in, want := range cases {
		if got := displayLabel(in); got != want {
			t.Errorf("displayLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestRenderStatusLine(t *testing.T) {
	line := renderStatusLine("Daemon", statusOK, "running", false)
	if !strings.Contains(line, "Daemon:") || !strings.Contains(line, "[OK] running") {
		t.Fatalf("unexpected line %q", line)
	}
	colored := renderStatusLine("Daemon", statusError, "", true)
	if !strings.HasPrefix(colored, ansiRed) || !strings.HasSuffix(colored, ansiReset) {
		t.Fatalf("expected colored output, got %q", colored)
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("abcdefghij", 6); got != "abc..." {
		t.Fatalf("unexpected truncation %q", got)
	}
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("unexpected truncation %q", got)
	}
}

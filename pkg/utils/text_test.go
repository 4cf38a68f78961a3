package utils

import (
	"testing"
)

func TestTruncate(t *testing.T) {
	if Truncate("hello", 10) != "hello" {
		t.Error("short string unchanged")
	}
	if Truncate("hello world", 5) != "hello..." {
		t.Errorf("got %s", Truncate("hello world", 5))
	}
	if Truncate("x", 0) != "x" {
		t.Error("maxLen 0 returns as-is")
	}
	if got := Truncate("Größe", 3); got != "Grö..." {
		t.Errorf("rune-safe truncate: got %s", got)
	}
}

func TestJoinSample(t *testing.T) {
	if got := JoinSample([]string{"invoice", "payment", "total"}, 100); got != "invoice payment total" {
		t.Errorf("got %q", got)
	}
	if got := JoinSample([]string{"invoice", "payment"}, 7); got != "invoice..." {
		t.Errorf("got %q", got)
	}
}

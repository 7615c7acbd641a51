package redis

import "testing"

func TestEscapeGlob(t *testing.T) {
	tests := map[string]string{
		"2024-04": "2024-04",
		"a*b?":    `a\*b\?`,
		"[x]":     `\[x\]`,
		`back\sl`: `back\\sl`,
	}
	for in, want := range tests {
		if got := escapeGlob(in); got != want {
			t.Errorf("escapeGlob(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestKeyNamespacing(t *testing.T) {
	c := &Client{prefix: "addebiti:"}
	if got := c.key("override", "2024-04-05"); got != "addebiti:override:2024-04-05" {
		t.Errorf("unexpected key %s", got)
	}
	if got := c.key("services", "order"); got != "addebiti:services:order" {
		t.Errorf("unexpected key %s", got)
	}
}

package util

import "testing"

func TestParseProxyAllowlist(t *testing.T) {
	l, err := ParseProxyAllowlist([]string{" 10.0.0.0/8 ", "::ffff:192.168.1.10", ""})
	if err != nil {
		t.Fatalf("parse allowlist: %v", err)
	}
	if len(l.prefixes) != 2 || l.prefixes[1].String() != "192.168.1.10/32" {
		t.Fatalf("unexpected prefixes: %v", l.prefixes)
	}
	if l, err := ParseProxyAllowlist([]string{" ", ""}); err != nil || l != nil {
		t.Fatalf("expected nil allowlist for blank entries, got %v (%v)", l, err)
	}
	for _, bad := range []string{"bad-cidr", "10.0.0.0/33"} {
		if _, err := ParseProxyAllowlist([]string{bad}); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

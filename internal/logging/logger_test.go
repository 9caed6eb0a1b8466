package logging

import "testing"

func TestNew(t *testing.T) {
	for _, mode := range []string{"prod", "production", "dev", ""} {
		l, err := New(mode)
		if err != nil {
			t.Fatalf("mode %q: %v", mode, err)
		}
		l.Named("test").With("k", "v").Debug("hello", "n", 1)
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded")
	l.Sync()
}

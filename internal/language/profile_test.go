package language

import "testing"

func TestLookupKnownLanguages(t *testing.T) {
	for _, id := range []string{"java", "python", "c", "cpp", "javascript", "csharp"} {
		p, ok := Lookup(id)
		if !ok {
			t.Fatalf("expected profile for %q", id)
		}
		if p.SourceFile == "" {
			t.Errorf("%q: empty source file", id)
		}
		if p.RunCmd == "" {
			t.Errorf("%q: empty run command", id)
		}
	}
}

func TestLookupUnsupported(t *testing.T) {
	if _, ok := Lookup("ruby"); ok {
		t.Fatal("expected ruby to be unsupported")
	}
}

func TestNeedsCompile(t *testing.T) {
	cases := map[string]bool{
		"python": false,
		"javascript": false,
		"c":   true,
		"cpp": true,
		"java": true,
	}
	for id, want := range cases {
		p, ok := Lookup(id)
		if !ok {
			t.Fatalf("missing profile %q", id)
		}
		if got := p.NeedsCompile(); got != want {
			t.Errorf("%q: NeedsCompile() = %v, want %v", id, got, want)
		}
	}
}

func TestIsBinaryRun(t *testing.T) {
	if p, _ := Lookup("cpp"); !p.IsBinaryRun() {
		t.Error("cpp should be a binary run")
	}
	if p, _ := Lookup("python"); p.IsBinaryRun() {
		t.Error("python should not be a binary run")
	}
}

func TestSupportedListsAllSix(t *testing.T) {
	if len(Supported()) != 6 {
		t.Fatalf("expected 6 supported languages, got %d", len(Supported()))
	}
}

package sandbox

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestDefaultSeccompSecurityOptShape(t *testing.T) {
	opt := defaultSeccompSecurityOpt()
	if !strings.HasPrefix(opt, "seccomp=") {
		t.Fatalf("got %q, want seccomp= prefix", opt)
	}

	var profile seccompProfile
	if err := json.Unmarshal([]byte(strings.TrimPrefix(opt, "seccomp=")), &profile); err != nil {
		t.Fatalf("profile did not round-trip as JSON: %v", err)
	}
	if profile.DefaultAction != "SCMP_ACT_ALLOW" {
		t.Fatalf("got default action %q", profile.DefaultAction)
	}
	if len(profile.Syscalls) != 1 || profile.Syscalls[0].Action != "SCMP_ACT_ERRNO" {
		t.Fatalf("got syscalls %+v", profile.Syscalls)
	}
	names := profile.Syscalls[0].Names
	for _, want := range []string{"ptrace", "mount", "unshare"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("denied syscalls missing %q", want)
		}
	}
}

package sandbox

import "encoding/json"

// deniedSyscalls blocks namespace/mount manipulation, kernel module
// loading, and ptrace — the escape vectors that matter given containers
// run as root (see DESIGN.md's Open Question (a)) — while leaving every
// other syscall a language runtime needs untouched.
//
// The teacher's cmd/sandbox-init builds an equivalent allow/deny filter
// with github.com/seccomp/libseccomp-golang, but that binary is itself
// each container's PID 1, applying the filter to its own process tree
// before exec'ing the submission. DockerDriver launches language
// runtime images directly with no custom init, so the same shape is
// expressed as a Docker-native seccomp profile and handed to the
// daemon via HostConfig.SecurityOpt instead of applied in-process.
var deniedSyscalls = []string{
	"ptrace", "mount", "umount2", "reboot", "kexec_load", "kexec_file_load",
	"init_module", "finit_module", "delete_module", "acct", "swapon",
	"swapoff", "unshare", "setns", "pivot_root",
}

type seccompProfile struct {
	DefaultAction string           `json:"defaultAction"`
	Syscalls      []seccompSyscall `json:"syscalls"`
}

type seccompSyscall struct {
	Names  []string `json:"names"`
	Action string   `json:"action"`
}

// defaultSeccompSecurityOpt renders the deny-list above as a
// --security-opt seccomp=<profile-json> value. Returns "" if the
// profile somehow fails to marshal, in which case the caller should
// fall back to the Docker daemon's own default profile rather than
// failing container creation over a hardening feature.
func defaultSeccompSecurityOpt() string {
	profile := seccompProfile{
		DefaultAction: "SCMP_ACT_ALLOW",
		Syscalls: []seccompSyscall{
			{Names: deniedSyscalls, Action: "SCMP_ACT_ERRNO"},
		},
	}
	data, err := json.Marshal(profile)
	if err != nil {
		return ""
	}
	return "seccomp=" + string(data)
}

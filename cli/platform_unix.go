//go:build unix

package cli

import "golang.org/x/sys/unix"

// DisableCoreDumps keeps decrypted seeds out of crash dumps.
func DisableCoreDumps() error {
	rlim := unix.Rlimit{Cur: 0, Max: 0}
	return unix.Setrlimit(unix.RLIMIT_CORE, &rlim)
}

//go:build !unix

package vault

import "os"

// Advisory locking is only implemented for unix hosts.
func lockFile(*os.File, bool) error { return nil }

//go:build !unix

package cli

func DisableCoreDumps() error { return nil }

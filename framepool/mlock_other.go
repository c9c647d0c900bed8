//go:build !linux

package framepool

import "errors"

var errNoMlock = errors.New("memory locking is not supported on this platform")

func lockMemory([]byte) error   { return errNoMlock }
func unlockMemory([]byte) error { return nil }

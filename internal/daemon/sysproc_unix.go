//go:build !windows

package daemon

import "syscall"

func detachedSysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{
		Setsid: true, // New session, detached from the terminal
	}
}

//go:build windows

package process

import "syscall"

var (
	kernel32             = syscall.NewLazyDLL("kernel32.dll")
	procOpenProcess      = kernel32.NewProc("OpenProcess")
	procTerminateProcess = kernel32.NewProc("TerminateProcess")
	procCloseHandle      = kernel32.NewProc("CloseHandle")
)

const (
	processTerminate        = 0x0001
	processQueryInformation = 0x0400
)

// signalGroup approximates Unix group signaling on Windows: any termination
// signal maps to TerminateProcess, signal 0 to an existence check.
func signalGroup(pid int, sig syscall.Signal) error {
	if pid < 0 {
		pid = -pid
	}
	if pid == 0 {
		return nil
	}
	if sig == 0 {
		return checkProcessExists(pid)
	}
	handle, err := openProcess(processTerminate, pid)
	if err != nil {
		// the process is likely already gone
		return nil
	}
	defer func() { _, _, _ = procCloseHandle.Call(uintptr(handle)) }()
	ret, _, callErr := procTerminateProcess.Call(uintptr(handle), uintptr(1))
	if ret == 0 {
		return callErr
	}
	return nil
}

func checkProcessExists(pid int) error {
	handle, err := openProcess(processQueryInformation, pid)
	if err != nil {
		return err
	}
	_, _, _ = procCloseHandle.Call(uintptr(handle))
	return nil
}

func openProcess(access uint32, pid int) (syscall.Handle, error) {
	ret, _, err := procOpenProcess.Call(uintptr(access), 0, uintptr(uint32(pid)))
	if ret == 0 {
		return 0, err
	}
	return syscall.Handle(ret), nil
}

// processExists checks if a process exists.
func processExists(pid int) bool {
	return checkProcessExists(pid) == nil
}

//go:build windows

package renderdoc

import (
	"fmt"
	"syscall"
)

// DefaultLibraryName is the module RenderDoc injects into a captured process.
const DefaultLibraryName = "renderdoc.dll"

func openLibrary(name string) (uintptr, error) {
	handle, err := syscall.LoadLibrary(name)
	if err != nil {
		return 0, fmt.Errorf("renderdoc: open %s: %w", name, err)
	}
	return uintptr(handle), nil
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	proc, err := syscall.GetProcAddress(syscall.Handle(handle), name)
	if err != nil {
		return 0, fmt.Errorf("renderdoc: resolve %s: %w", name, err)
	}
	return proc, nil
}

func closeLibrary(handle uintptr) {
	_ = syscall.FreeLibrary(syscall.Handle(handle))
}

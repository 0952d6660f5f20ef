//go:build !windows

package renderdoc

import (
	"fmt"

	"github.com/ebitengine/purego"
)

// DefaultLibraryName is the shared object RenderDoc preloads into a captured
// process. macOS has no RenderDoc build, so there the open simply fails.
const DefaultLibraryName = "librenderdoc.so"

func openLibrary(name string) (uintptr, error) {
	handle, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
	if err != nil {
		return 0, fmt.Errorf("renderdoc: open %s: %w", name, err)
	}
	if handle == 0 {
		return 0, fmt.Errorf("renderdoc: open %s", name)
	}
	return handle, nil
}

func lookupSymbol(handle uintptr, name string) (uintptr, error) {
	sym, err := purego.Dlsym(handle, name)
	if err != nil {
		return 0, fmt.Errorf("renderdoc: resolve %s: %w", name, err)
	}
	if sym == 0 {
		return 0, fmt.Errorf("renderdoc: resolve %s", name)
	}
	return sym, nil
}

func closeLibrary(handle uintptr) {
	_ = purego.Dlclose(handle)
}

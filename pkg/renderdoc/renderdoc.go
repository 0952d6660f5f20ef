// Package renderdoc binds the RenderDoc in-application API at runtime.
//
// RenderDoc is optional debug tooling: when the process was not launched or
// injected by RenderDoc, the library is simply absent and Load reports
// [ErrUnavailable]. Callers treat that as "no capture tooling" and carry on.
//
//	api, err := renderdoc.Load()
//	if err != nil {
//		// capture tooling not present
//	} else {
//		defer api.Close()
//		api.StartFrameCapture()
//		renderFrame()
//		api.EndFrameCapture()
//	}
//
// The library is opened once per path and never unloaded.
package renderdoc

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

const getAPISymbol = "RENDERDOC_GetAPI"

// getAPISuccess is the status RENDERDOC_GetAPI returns on success.
const getAPISuccess = 1

var (
	// ErrUnavailable is wrapped by every error Load returns.
	ErrUnavailable = errors.New("renderdoc: api unavailable")

	ErrLibraryNotFound = fmt.Errorf("%w: library not found", ErrUnavailable)
	ErrSymbolNotFound  = fmt.Errorf("%w: %s not exported", ErrUnavailable, getAPISymbol)
	ErrFactoryFailed   = fmt.Errorf("%w: %s failed", ErrUnavailable, getAPISymbol)
	ErrNilTable        = fmt.Errorf("%w: %s returned a nil table", ErrUnavailable, getAPISymbol)
)

// FrameCaptureAPI brackets the GPU work of one frame.
type FrameCaptureAPI interface {
	StartFrameCapture()
	EndFrameCapture()
}

// Platform hooks, replaced in tests.
var (
	openLibraryFn  = openLibrary
	lookupSymbolFn = lookupSymbol
	closeLibraryFn = closeLibrary
	registerFunc   = purego.RegisterFunc
)

var (
	modulesMu sync.Mutex
	modules   = map[string]factoryFunc{}
)

// API is a handle on the RenderDoc 1.6.0 function table. Each successful
// Load returns a new handle; closing one does not affect the others.
//
// Calls on a nil or closed API are no-ops.
type API struct {
	mu     sync.Mutex
	closed bool
	fns    boundFuncs
}

var _ FrameCaptureAPI = (*API)(nil)

// Load binds the API from the library found under [DefaultLibraryName] on
// the dynamic library search path.
func Load() (*API, error) {
	return LoadFrom(DefaultLibraryName)
}

// LoadFrom binds the API from the library at path. An empty path means
// [DefaultLibraryName].
func LoadFrom(path string) (*API, error) {
	if path == "" {
		path = DefaultLibraryName
	}

	getAPI, err := loadModule(path)
	if err != nil {
		Logger().Debug("renderdoc: unavailable", "library", path, "err", err)
		return nil, err
	}

	var table unsafe.Pointer
	if ret := getAPI(Version1_6_0, &table); ret != getAPISuccess {
		err := fmt.Errorf("%w: status %d for version %s", ErrFactoryFailed, ret, Version1_6_0)
		Logger().Debug("renderdoc: unavailable", "library", path, "err", err)
		return nil, err
	}
	if table == nil {
		Logger().Debug("renderdoc: unavailable", "library", path, "err", ErrNilTable)
		return nil, ErrNilTable
	}

	api := bindTable(readTable(table))
	major, minor, patch := api.APIVersion()
	Logger().Debug("renderdoc: api loaded",
		"library", path,
		"requested", Version1_6_0.String(),
		"version", fmt.Sprintf("%d.%d.%d", major, minor, patch))
	return api, nil
}

// loadModule opens path once and resolves the factory. Failures are not
// cached, so a later call can pick up a library injected after startup.
func loadModule(path string) (factoryFunc, error) {
	modulesMu.Lock()
	defer modulesMu.Unlock()

	if fn, ok := modules[path]; ok {
		return fn, nil
	}

	handle, err := openLibraryFn(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLibraryNotFound, err)
	}
	sym, err := lookupSymbolFn(handle, getAPISymbol)
	if err != nil {
		closeLibraryFn(handle)
		return nil, fmt.Errorf("%w: %w", ErrSymbolNotFound, err)
	}

	var fn factoryFunc
	registerFunc(&fn, sym)
	modules[path] = fn
	return fn, nil
}

// bindTable turns the slot addresses into Go functions. Null slots stay nil.
func bindTable(slots []uintptr) *API {
	api := &API{}
	bind := func(fptr any, slot int) {
		if addr := slots[slot]; addr != 0 {
			registerFunc(fptr, addr)
		} else {
			Logger().Debug("renderdoc: null table slot", "slot", slot)
		}
	}
	bind(&api.fns.apiVersion, slotGetAPIVersion)
	bind(&api.fns.numCaptures, slotGetNumCaptures)
	bind(&api.fns.triggerCapture, slotTriggerCapture)
	bind(&api.fns.startCapture, slotStartFrameCapture)
	bind(&api.fns.isCapturing, slotIsFrameCapturing)
	bind(&api.fns.endCapture, slotEndFrameCapture)
	bind(&api.fns.setCaptureTitle, slotSetCaptureTitle)
	return api
}

// Close releases the handle. The function table itself belongs to RenderDoc
// and stays alive. Close is idempotent and always returns nil.
func (a *API) Close() error {
	if a == nil {
		return nil
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	a.closed = true
	a.fns = boundFuncs{}
	return nil
}

// Closed reports whether Close has been called.
func (a *API) Closed() bool {
	if a == nil {
		return true
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.closed
}

// StartFrameCapture begins capturing on the active device and window.
func (a *API) StartFrameCapture() {
	if fn := a.snapshot().startCapture; fn != nil {
		fn(0, 0)
		return
	}
	Logger().Debug("renderdoc: StartFrameCapture on unusable handle")
}

// EndFrameCapture ends the capture started by StartFrameCapture.
func (a *API) EndFrameCapture() {
	if fn := a.snapshot().endCapture; fn != nil {
		fn(0, 0)
		return
	}
	Logger().Debug("renderdoc: EndFrameCapture on unusable handle")
}

// APIVersion reports the version of the API RenderDoc actually provides.
func (a *API) APIVersion() (major, minor, patch int) {
	fn := a.snapshot().apiVersion
	if fn == nil {
		return 0, 0, 0
	}
	var ma, mi, pa int32
	fn(&ma, &mi, &pa)
	return int(ma), int(mi), int(pa)
}

// IsFrameCapturing reports whether a frame capture is in progress.
func (a *API) IsFrameCapturing() bool {
	fn := a.snapshot().isCapturing
	return fn != nil && fn() != 0
}

// TriggerCapture asks RenderDoc to capture the next presented frame.
func (a *API) TriggerCapture() {
	if fn := a.snapshot().triggerCapture; fn != nil {
		fn()
	}
}

// NumCaptures returns how many captures RenderDoc has written so far.
func (a *API) NumCaptures() uint32 {
	if fn := a.snapshot().numCaptures; fn != nil {
		return fn()
	}
	return 0
}

// SetCaptureTitle labels the capture currently in progress.
func (a *API) SetCaptureTitle(title string) {
	if fn := a.snapshot().setCaptureTitle; fn != nil {
		fn(title)
	}
}

// boundFuncs holds the table slots bound to Go functions.
type boundFuncs struct {
	apiVersion      apiVersionFunc
	startCapture    startCaptureFunc
	endCapture      endCaptureFunc
	isCapturing     isCapturingFunc
	triggerCapture  triggerCaptureFunc
	numCaptures     numCapturesFunc
	setCaptureTitle setCaptureTitleFunc
}

// snapshot copies the bound functions so native calls run without a.mu held.
func (a *API) snapshot() boundFuncs {
	if a == nil {
		return boundFuncs{}
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fns
}

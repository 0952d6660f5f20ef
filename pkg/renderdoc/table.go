package renderdoc

import (
	"fmt"
	"unsafe"
)

// Version selects the layout of the function table RENDERDOC_GetAPI returns.
// Values follow renderdoc_app.h: major*10000 + minor*100 + patch.
type Version int32

// Version1_6_0 is the table layout this package binds.
const Version1_6_0 Version = 10600

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v/10000, v/100%100, v%100)
}

// Slot indices into RENDERDOC_API_1_6_0. Every member is one pointer wide;
// the unions in the header (Shutdown/RemoveHooks and friends) occupy one slot.
const (
	slotGetAPIVersion     = 0
	slotGetNumCaptures    = 13
	slotTriggerCapture    = 15
	slotStartFrameCapture = 19
	slotIsFrameCapturing  = 20
	slotEndFrameCapture   = 21
	slotSetCaptureTitle   = 26

	tableSlots1_6_0 = 27
)

// Native signatures of the bound slots.
type (
	factoryFunc         func(version Version, out *unsafe.Pointer) int32
	apiVersionFunc      func(major, minor, patch *int32)
	startCaptureFunc    func(device, window uintptr)
	endCaptureFunc      func(device, window uintptr) uint32
	isCapturingFunc     func() uint32
	triggerCaptureFunc  func()
	numCapturesFunc     func() uint32
	setCaptureTitleFunc func(title string)
)

// readTable copies the slot words out of the table RenderDoc owns. The table
// is a process-wide singleton, so the copied addresses stay valid for the
// process lifetime.
func readTable(p unsafe.Pointer) []uintptr {
	return append([]uintptr(nil), unsafe.Slice((*uintptr)(p), tableSlots1_6_0)...)
}

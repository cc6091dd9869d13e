/*
Package extype provides the two Arrow extension types POD5 tables use:
a UUID extension over 16-byte fixed-size binary, and a VBZ-signal
extension over large binary. Both have empty serialization payloads and
compare equal by extension name alone, per spec.

Registration is process-wide (Arrow's extension-type registry is a single
global map), so this package wraps it in a reference count: the first
RegisterAll call actually registers each type with Arrow; later calls
just bump the count; Handle.Release only removes a type from Arrow's
registry once its count reaches zero. This avoids the usual
static-destructor-ordering headache of a bare global registration and
makes repeated registration from independent callers idempotent.
*/
package extype

import (
	"sync"

	"github.com/apache/arrow/go/v14/arrow"
)

var registryMu sync.Mutex
var refCounts = map[string]int{}

// Handle is a reference to one or more registered extension types.
// Release decrements the process-wide reference count for each and
// unregisters a type from Arrow once its count reaches zero.
type Handle struct {
	names []string
}

// Release unregisters any extension type for which this was the last
// outstanding handle. Release is safe to call more than once; later
// calls are no-ops.
func (h *Handle) Release() {
	if h == nil || len(h.names) == 0 {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	names := h.names
	h.names = nil

	for _, name := range names {
		refCounts[name]--
		if refCounts[name] <= 0 {
			delete(refCounts, name)
			_ = arrow.UnregisterExtensionType(name)
		}
	}
}

// register records a new reference to name, registering it with Arrow's
// extension-type registry on the first reference. A failure from Arrow
// that indicates the name is already registered (e.g. by a prior,
// unrelated package instance) is tolerated: our count still owns an
// Unregister obligation once it drops to zero.
func register(name string, typ arrow.ExtensionType) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if refCounts[name] == 0 {
		// Ignore the error: if it's already registered (by us, in a
		// prior process-wide registration this package doesn't know
		// about) re-registering is harmless to ignore, and any other
		// failure will resurface the first time the type is used.
		_ = arrow.RegisterExtensionType(typ)
	}
	refCounts[name]++
}

// RegisterAll registers both the UUID and VBZ-signal extension types and
// returns a single handle that releases both. Call Release on the
// returned handle when the caller no longer needs the types registered.
func RegisterAll() *Handle {
	register(UUIDExtensionName, NewUUIDType())
	register(VBZSignalExtensionName, NewVBZSignalType())
	return &Handle{names: []string{UUIDExtensionName, VBZSignalExtensionName}}
}

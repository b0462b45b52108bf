//go:build cgo

package transcriber

import (
	"context"
	"runtime/cgo"
	"unsafe"
)

// contextFromHandle extracts the context.Context stored behind the
// cgo.Handle pointer handed to the whisper abort callback.
func contextFromHandle(userData unsafe.Pointer) (context.Context, bool) {
	if userData == nil {
		return nil, false
	}
	handle := *(*cgo.Handle)(userData)
	if handle == 0 {
		return nil, false
	}

	var value any
	func() {
		defer func() {
			if recover() != nil {
				value = nil
			}
		}()
		value = handle.Value()
	}()
	if value == nil {
		return nil, false
	}

	ctx, ok := value.(context.Context)
	return ctx, ok
}

// shouldAbort reports whether the context behind userData has been cancelled.
func shouldAbort(userData unsafe.Pointer) bool {
	ctx, ok := contextFromHandle(userData)
	if !ok {
		return false
	}
	return ctx.Err() != nil
}

package exception

import (
	"runtime/debug"

	"github.com/mezonai/remit/logx"
	"github.com/mezonai/remit/monitoring"
)

func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				monitoring.IncreasePanicCount()
				logx.Error("PANIC", "Panic in ", name, ": ", r, "\n", string(debug.Stack()))
			}
		}()
		fn()
	}()
}

// SafeRun runs fn on the current goroutine and converts a panic into ok=false.
func SafeRun(name string, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			monitoring.IncreasePanicCount()
			logx.Error("PANIC", "Panic in ", name, ": ", r, "\n", string(debug.Stack()))
			ok = false
		}
	}()
	fn()
	return true
}

package exception

import (
	"fmt"
	"net/http"
	"os"
	"runtime/debug"

	"github.com/mezonai/vessel/logx"
	"github.com/mezonai/vessel/monitoring"
)

func report(name string, r any, fatal bool) {
	monitoring.IncreasePanicCount()
	level := "Recovered"
	if fatal {
		level = "Fatal"
	}
	logx.Error("PANIC", level, " panic in ", name, ": ", r, "\n", string(debug.Stack()))
}

// SafeGo starts fn in its own goroutine. A panic is logged and counted and
// the goroutine ends; the process keeps running.
func SafeGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				report(name, r, false)
			}
		}()
		fn()
	}()
}

// MustGo is SafeGo for goroutines the process cannot live without: after
// logging the panic it exits with status 1.
func MustGo(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				report(name, r, true)
				os.Exit(1)
			}
		}()
		fn()
	}()
}

// Run calls fn and turns a panic into an error, for worker goroutines whose
// errors are collected by the caller.
func Run(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			report(name, r, false)
			err = fmt.Errorf("%s: panic: %v", name, r)
		}
	}()
	return fn()
}

// Middleware answers 500 when a handler panics
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				report(r.Method+" "+r.URL.Path, rec, false)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

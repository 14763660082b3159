// Package monitoring holds the diagnostic logger shared by library packages.
package monitoring

import "log"

// Logf defaults to log.Printf. Replace it with SetLogger to redirect or mute.
var Logf func(format string, v ...any) = log.Printf

// SetLogger replaces the package logger. Passing nil installs a no-op logger.
func SetLogger(f func(format string, v ...any)) {
	if f == nil {
		Logf = func(string, ...any) {}
		return
	}
	Logf = f
}

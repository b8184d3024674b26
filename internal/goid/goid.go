// Package goid reports the identity of the calling goroutine.
package goid

import (
	"bytes"
	"runtime"
	"strconv"
)

var prefix = []byte("goroutine ")

// Get returns the runtime identifier of the calling goroutine. Identifiers
// are assigned in increasing order and never reused within a process.
// It returns 0 if the runtime's stack header cannot be parsed.
func Get() int64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	return parse(buf[:n])
}

// parse extracts the id from a stack header of the form
// "goroutine 18 [running]:".
func parse(header []byte) int64 {
	header, ok := bytes.CutPrefix(header, prefix)
	if !ok {
		return 0
	}

	end := bytes.IndexByte(header, ' ')
	if end < 0 {
		return 0
	}

	id, err := strconv.ParseInt(string(header[:end]), 10, 64)
	if err != nil {
		return 0
	}

	return id
}

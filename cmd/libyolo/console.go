package main

/*
#include <stdlib.h>

typedef void (*yolo_console_fn)(int level, const char* line);

static void yolo_call_console(yolo_console_fn fn, int level, const char* line) {
	fn(level, line);
}
*/
import "C"

import (
	"unsafe"

	"go.uber.org/zap/zapcore"
)

// consolePrinter forwards log lines to a host function pointer. Levels use
// zap's numbering: -1 debug, 0 info, 1 warn, 2 error.
func consolePrinter(fn C.yolo_console_fn) func(zapcore.Level, string) {
	return func(level zapcore.Level, line string) {
		cs := C.CString(line)
		defer C.free(unsafe.Pointer(cs))
		C.yolo_call_console(fn, C.int(level), cs)
	}
}

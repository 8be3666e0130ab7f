// Command libyolo builds the detector as a C shared library:
//
//	go build -buildmode=c-shared -o libyolo.so ./cmd/libyolo
//
// Every function returning char* hands ownership to the caller, who must
// release it with yolo_free_string. Error out-parameters follow the same rule
// and are only written on failure.
package main

/*
#include <stdint.h>
#include <stdlib.h>

typedef void (*yolo_console_fn)(int level, const char* line);
*/
import "C"

import (
	"unsafe"

	"github.com/goccy/go-json"

	"github.com/nvr-ai/go-yolo-ffi/host"
)

var rt = host.NewRuntime()

func setError(out **C.char, err error) {
	if msg := errorText(err); out != nil && msg != "" {
		*out = C.CString(msg)
	}
}

// yolo_set_console routes inference log lines to fn. NULL disables them.
//
//export yolo_set_console
func yolo_set_console(fn C.yolo_console_fn) {
	if fn == nil {
		rt.SetConsole(nil)
		return
	}
	rt.SetConsole(consolePrinter(fn))
}

// yolo_configure applies YAML configuration to models created afterwards.
// Returns 0 on success.
//
//export yolo_configure
func yolo_configure(yaml *C.char, errOut **C.char) C.int {
	var data []byte
	if yaml != nil {
		data = []byte(C.GoString(yaml))
	}
	if err := rt.Configure(data); err != nil {
		setError(errOut, err)
		return -1
	}
	return 0
}

// yolo_model_new loads the embedded model. Returns 0 on failure.
//
//export yolo_model_new
func yolo_model_new(errOut **C.char) C.uint64_t {
	h, err := rt.Open()
	if err != nil {
		setError(errOut, err)
		return 0
	}
	return C.uint64_t(h)
}

// yolo_model_run detects objects in the encoded image at data[0:n] and
// returns a JSON array of [class, box] pairs, or NULL on failure.
// The image is copied before the call returns and may not exceed INT_MAX bytes.
//
//export yolo_model_run
func yolo_model_run(h C.uint64_t, data *C.uchar, n C.size_t, conf, iou C.float, errOut **C.char) *C.char {
	read := func(l int) []byte { return C.GoBytes(unsafe.Pointer(data), C.int(l)) }
	out, err := runImage(rt, host.Handle(h), data != nil, uint64(n), read, float32(conf), float32(iou))
	if err != nil {
		setError(errOut, err)
		return nil
	}
	return C.CString(out)
}

// yolo_model_free releases a model. Returns 0 on success.
//
//export yolo_model_free
func yolo_model_free(h C.uint64_t) C.int {
	if err := rt.Release(host.Handle(h)); err != nil {
		return -1
	}
	return 0
}

// yolo_metrics returns the counters of every model created by this library
// in the Prometheus text format, or NULL on failure.
//
//export yolo_metrics
func yolo_metrics(errOut **C.char) *C.char {
	out, err := rt.Metrics()
	if err != nil {
		setError(errOut, err)
		return nil
	}
	return C.CString(out)
}

// yolo_class_names returns the label table as a JSON array of strings.
//
//export yolo_class_names
func yolo_class_names() *C.char {
	raw, err := json.Marshal(rt.ClassNames())
	if err != nil {
		return nil
	}
	return C.CString(string(raw))
}

// yolo_free_string releases a string returned by this library.
//
//export yolo_free_string
func yolo_free_string(s *C.char) {
	C.free(unsafe.Pointer(s))
}

func main() {}

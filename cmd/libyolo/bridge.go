package main

import (
	"math"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-yolo-ffi/host"
)

// maxImageBytes is the largest buffer C.GoBytes can copy, whose length is a C int.
const maxImageBytes = math.MaxInt32

// ErrImageTooLarge is returned for host buffers longer than maxImageBytes.
var ErrImageTooLarge = errors.New("image too large")

// copyImage copies n bytes of a host buffer into Go memory through read.
// A missing or empty buffer yields nil, which the engine rejects as an image.
func copyImage(present bool, n uint64, read func(int) []byte) ([]byte, error) {
	if !present || n == 0 {
		return nil, nil
	}
	if n > maxImageBytes {
		return nil, errors.Wrapf(ErrImageTooLarge, "%d bytes exceeds the %d byte limit", n, maxImageBytes)
	}
	return read(int(n)), nil
}

// runImage is yolo_model_run without the C types.
func runImage(rt *host.Runtime, h host.Handle, present bool, n uint64, read func(int) []byte, conf, iou float32) (string, error) {
	image, err := copyImage(present, n, read)
	if err != nil {
		return "", err
	}
	return rt.Run(h, image, conf, iou)
}

// errorText is the message written to an error out-parameter, or "" when
// there is nothing to report.
func errorText(err error) string {
	if err == nil {
		return ""
	}
	return host.Exception(err)
}

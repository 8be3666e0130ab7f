// Package providers - ONNX Runtime environment, session options and sessions.
package providers

import (
	"os"
	"runtime"

	"github.com/pkg/errors"
)

// SharedLibPathEnv overrides the platform default location of the ONNX Runtime library.
const SharedLibPathEnv = "ONNXRUNTIME_SHARED_LIBRARY_PATH"

// GetSharedLibPath returns the default path to the shared library for the current platform.
//
// Returns:
//   - string: The path to the shared library, or "" when the platform is unsupported.
func GetSharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "third_party/onnxruntime.dll"
	case "darwin":
		return "third_party/libonnxruntime.dylib"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.so"
		}
		return "third_party/onnxruntime.so"
	}
	return ""
}

// ResolveSharedLibPath picks the ONNX Runtime library to load and checks it exists.
//
// The configured path wins, then $ONNXRUNTIME_SHARED_LIBRARY_PATH, then the
// platform default.
//
// Arguments:
//   - configured: Path from configuration, may be empty.
//
// Returns:
//   - string: The resolved path.
//   - error: An error if no path applies or the file is missing.
func ResolveSharedLibPath(configured string) (string, error) {
	path := configured
	if path == "" {
		path = os.Getenv(SharedLibPathEnv)
	}
	if path == "" {
		path = GetSharedLibPath()
	}
	if path == "" {
		return "", errors.Errorf("no ONNX Runtime library known for %s/%s", runtime.GOOS, runtime.GOARCH)
	}
	if _, err := os.Stat(path); err != nil {
		return "", errors.Wrapf(err, "ONNX Runtime library not found at %s", path)
	}
	return path, nil
}

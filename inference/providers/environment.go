package providers

import (
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// InitEnvironment loads the ONNX Runtime library and prepares its global state.
//
// The environment is process-wide: the first successful call wins and later
// calls return nil without touching the library again. A failed call can be
// retried, e.g. after fixing the library path.
func InitEnvironment(libPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}

	resolved, err := ResolveSharedLibPath(libPath)
	if err != nil {
		return err
	}
	ort.SetSharedLibraryPath(resolved)
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "error initializing ORT environment")
	}
	return nil
}

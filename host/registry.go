package host

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/nvr-ai/go-yolo-ffi/detector"
	"github.com/nvr-ai/go-yolo-ffi/logging"
)

// Handle identifies a model owned by a Registry. Zero is never issued.
type Handle uint64

// Factory builds a model. The registry passes the logger it wants the model to use.
type Factory func(log *zap.Logger) (*detector.Model, error)

// Registry maps handles to live models.
//
// A handle is Ready from Open until Release. Runs on one handle are
// serialized; handles are independent of each other.
type Registry struct {
	factory Factory
	log     atomic.Pointer[zap.Logger]
	next    atomic.Uint64

	mu      sync.RWMutex
	entries map[Handle]*entry
}

type entry struct {
	mu    sync.Mutex
	model *detector.Model
}

// NewRegistry returns an empty registry that builds models with factory.
func NewRegistry(factory Factory, log *zap.Logger) *Registry {
	r := &Registry{factory: factory, entries: make(map[Handle]*entry)}
	r.SetLogger(log)
	return r
}

// SetLogger changes the logger handed to models opened afterwards.
func (r *Registry) SetLogger(log *zap.Logger) {
	r.log.Store(logging.OrNop(log))
}

// SetFactory changes how later models are built.
func (r *Registry) SetFactory(factory Factory) {
	r.mu.Lock()
	r.factory = factory
	r.mu.Unlock()
}

// Open builds a model and returns its handle.
func (r *Registry) Open() (Handle, error) {
	r.mu.RLock()
	factory := r.factory
	r.mu.RUnlock()

	model, err := factory(r.log.Load())
	if err != nil {
		return 0, wrap("new", err)
	}

	h := Handle(r.next.Add(1))
	r.mu.Lock()
	r.entries[h] = &entry{model: model}
	r.mu.Unlock()
	return h, nil
}

// Run executes one detection on the model behind h.
func (r *Registry) Run(h Handle, image []byte, conf, iou float32) (string, error) {
	e, err := r.lookup(h)
	if err != nil {
		return "", wrap("run", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return "", wrap("run", ErrUnknownHandle)
	}
	out, err := e.model.Run(image, conf, iou)
	return out, wrap("run", err)
}

// Release closes the model behind h and forgets the handle.
func (r *Registry) Release(h Handle) error {
	r.mu.Lock()
	e, ok := r.entries[h]
	delete(r.entries, h)
	r.mu.Unlock()
	if !ok {
		return wrap("free", ErrUnknownHandle)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	err := e.model.Close()
	e.model = nil
	return wrap("free", err)
}

// Len returns the number of live handles.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Close releases every live handle.
func (r *Registry) Close() {
	r.mu.RLock()
	handles := make([]Handle, 0, len(r.entries))
	for h := range r.entries {
		handles = append(handles, h)
	}
	r.mu.RUnlock()

	for _, h := range handles {
		_ = r.Release(h)
	}
}

func (r *Registry) lookup(h Handle) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[h]
	if !ok {
		return nil, ErrUnknownHandle
	}
	return e, nil
}

package providers

import (
	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

// Session is an ONNX Runtime session bound to one preallocated float32 input
// and one preallocated float32 output.
type Session struct {
	Session *ort.AdvancedSession
	Input   *ort.Tensor[float32]
	Output  *ort.Tensor[float32]
}

// NewSessionArgs represents the arguments for creating a new session.
type NewSessionArgs struct {
	// Serialized ONNX model.
	Model []byte
	// Names of the graph input and output nodes.
	InputName, OutputName string
	// Shapes used to preallocate the bound tensors.
	InputShape, OutputShape ort.Shape
	// Execution settings.
	Options SessionConfig
}

// ModelIO describes the first input and output of a model.
type ModelIO struct {
	InputName   string
	InputShape  ort.Shape
	OutputName  string
	OutputShape ort.Shape
}

// InspectModel reads input/output metadata from serialized ONNX bytes.
// The environment must be initialized.
func InspectModel(model []byte) (ModelIO, error) {
	inputs, outputs, err := ort.GetInputOutputInfoWithONNXData(model)
	if err != nil {
		return ModelIO{}, errors.Wrap(err, "error reading model metadata")
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return ModelIO{}, errors.Errorf("model has %d inputs and %d outputs", len(inputs), len(outputs))
	}
	return ModelIO{
		InputName:   inputs[0].Name,
		InputShape:  inputs[0].Dimensions,
		OutputName:  outputs[0].Name,
		OutputShape: outputs[0].Dimensions,
	}, nil
}

// NewSession creates a session with preallocated tensors.
//
// Order of operations:
//  1. Tensor allocation: fixed-shape buffers for input/output data.
//  2. Session options: threading and graph optimization.
//  3. Session creation: loads the model from memory and binds the tensors.
//
// Every native resource created before a failure is released. The environment
// must already be initialized (see InitEnvironment).
//
// Arguments:
//   - args: The arguments for the session.
//
// Returns:
//   - *Session: The session and its tensors. Release with Close.
//   - error: An error if the session creation fails.
func NewSession(args NewSessionArgs) (*Session, error) {
	if len(args.Model) == 0 {
		return nil, errors.New("empty model")
	}
	if args.InputName == "" || args.OutputName == "" {
		return nil, errors.New("input and output names are required")
	}

	input, err := ort.NewEmptyTensor[float32](args.InputShape)
	if err != nil {
		return nil, errors.Wrap(err, "error creating input tensor")
	}
	output, err := ort.NewEmptyTensor[float32](args.OutputShape)
	if err != nil {
		input.Destroy()
		return nil, errors.Wrap(err, "error creating output tensor")
	}

	options, err := args.Options.NewSessionOptions()
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, err
	}
	defer options.Destroy()

	session, err := ort.NewAdvancedSessionWithONNXData(
		args.Model,
		[]string{args.InputName},
		[]string{args.OutputName},
		[]ort.Value{input},
		[]ort.Value{output},
		options,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, errors.Wrap(err, "error creating ORT session")
	}

	return &Session{Session: session, Input: input, Output: output}, nil
}

// Run executes the graph on the current contents of Input and fills Output.
func (s *Session) Run() error {
	if s.Session == nil {
		return errors.New("session is closed")
	}
	if err := s.Session.Run(); err != nil {
		return errors.Wrap(err, "error running ORT session")
	}
	return nil
}

// Close releases the resources associated with the Session. It is safe to call twice.
func (s *Session) Close() error {
	if s.Input != nil {
		s.Input.Destroy()
		s.Input = nil
	}
	if s.Output != nil {
		s.Output.Destroy()
		s.Output = nil
	}
	if s.Session != nil {
		err := s.Session.Destroy()
		s.Session = nil
		if err != nil {
			return errors.Wrap(err, "error destroying ORT session")
		}
	}
	return nil
}

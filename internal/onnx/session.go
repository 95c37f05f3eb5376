package onnx

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/yalue/onnxruntime_go"
)

const (
	libLinux   = "libonnxruntime.so"
	libDarwin  = "libonnxruntime.dylib"
	libWindows = "onnxruntime.dll"
)

var initOnce sync.Once

// getSystemLibraryPaths returns well-known locations of the ONNX Runtime
// shared library.
func getSystemLibraryPaths() []string {
	return []string{
		"/usr/local/lib/libonnxruntime.so",
		"/usr/lib/libonnxruntime.so",
		"/opt/onnxruntime/cpu/lib/libonnxruntime.so",
	}
}

// findProjectRoot finds the project root directory by looking for go.mod.
func findProjectRoot() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("failed to get current directory: %w", err)
	}

	root := cwd
	for {
		if _, err := os.Stat(filepath.Join(root, "go.mod")); err == nil {
			return root, nil
		}
		parent := filepath.Dir(root)
		if parent == root {
			return "", errors.New("could not find project root")
		}
		root = parent
	}
}

// getLibraryName returns the appropriate library filename for the current OS.
func getLibraryName() (string, error) {
	switch runtime.GOOS {
	case "linux":
		return libLinux, nil
	case "darwin":
		return libDarwin, nil
	case "windows":
		return libWindows, nil
	default:
		return "", fmt.Errorf("unsupported operating system: %s", runtime.GOOS)
	}
}

// trySetLibraryPath attempts to set the ONNX library path if the file exists.
func trySetLibraryPath(path string) bool {
	if _, err := os.Stat(path); err == nil {
		onnxruntime_go.SetSharedLibraryPath(path)
		return true
	}
	return false
}

// SetLibraryPath points ONNX Runtime at its shared library, trying system
// paths first, then a project-relative onnxruntime/lib directory.
func SetLibraryPath() error {
	for _, path := range getSystemLibraryPaths() {
		if trySetLibraryPath(path) {
			return nil
		}
	}

	root, err := findProjectRoot()
	if err != nil {
		return err
	}
	libName, err := getLibraryName()
	if err != nil {
		return err
	}
	libPath := filepath.Join(root, "onnxruntime", "lib", libName)
	if !trySetLibraryPath(libPath) {
		return fmt.Errorf("ONNX Runtime library not found at %s", libPath)
	}
	return nil
}

// EnsureRuntime sets the shared library path and initializes the ONNX Runtime
// environment once per process.
func EnsureRuntime() error {
	var initErr error
	initOnce.Do(func() {
		if err := SetLibraryPath(); err != nil {
			initErr = fmt.Errorf("failed to set ONNX Runtime library path: %w", err)
			return
		}
		if !onnxruntime_go.IsInitialized() {
			if err := onnxruntime_go.InitializeEnvironment(); err != nil {
				initErr = fmt.Errorf("failed to initialize ONNX Runtime: %w", err)
			}
		}
	})
	return initErr
}

// Session wraps a single-input, single-output ONNX model session.
type Session struct {
	sess       *onnxruntime_go.DynamicAdvancedSession
	inputName  string
	outputName string
	modelPath  string
	mu         sync.Mutex
}

// NewSession loads the model at modelPath and prepares an inference session.
// numThreads limits intra-op parallelism when > 0.
func NewSession(modelPath string, numThreads int) (*Session, error) {
	if modelPath == "" {
		return nil, errors.New("model path is empty")
	}
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("model not found: %s", modelPath)
	}
	if err := EnsureRuntime(); err != nil {
		return nil, err
	}

	inputs, outputs, err := onnxruntime_go.GetInputOutputInfo(modelPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read model info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, fmt.Errorf("model %s has no inputs or outputs", modelPath)
	}

	opts, err := onnxruntime_go.NewSessionOptions()
	if err != nil {
		return nil, fmt.Errorf("failed to create session options: %w", err)
	}
	defer func() {
		if derr := opts.Destroy(); derr != nil {
			fmt.Fprintf(os.Stderr, "Failed to destroy session options: %v\n", derr)
		}
	}()

	if numThreads > 0 {
		if err := opts.SetIntraOpNumThreads(numThreads); err != nil {
			return nil, fmt.Errorf("failed to set thread count: %w", err)
		}
	}

	sess, err := onnxruntime_go.NewDynamicAdvancedSession(modelPath,
		[]string{inputs[0].Name}, []string{outputs[0].Name}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	return &Session{
		sess:       sess,
		inputName:  inputs[0].Name,
		outputName: outputs[0].Name,
		modelPath:  modelPath,
	}, nil
}

// ModelPath returns the path the session was loaded from.
func (s *Session) ModelPath() string { return s.modelPath }

// Run executes the model on a single input tensor and returns the flattened
// float32 output along with its shape.
func (s *Session) Run(t Tensor) ([]float32, []int64, error) {
	if err := VerifyImageTensor(t); err != nil {
		return nil, nil, fmt.Errorf("invalid tensor: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess == nil {
		return nil, nil, errors.New("session is closed")
	}

	input, err := onnxruntime_go.NewTensor(onnxruntime_go.NewShape(t.Shape...), t.Data)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create input tensor: %w", err)
	}
	defer func() {
		if derr := input.Destroy(); derr != nil {
			fmt.Fprintf(os.Stderr, "Error destroying input tensor: %v\n", derr)
		}
	}()

	outputs := []onnxruntime_go.Value{nil}
	if err := s.sess.Run([]onnxruntime_go.Value{input}, outputs); err != nil {
		return nil, nil, fmt.Errorf("inference failed: %w", err)
	}
	out := outputs[0]
	defer func() {
		if derr := out.Destroy(); derr != nil {
			fmt.Fprintf(os.Stderr, "Error destroying output tensor: %v\n", derr)
		}
	}()

	floatOut, ok := out.(*onnxruntime_go.Tensor[float32])
	if !ok {
		return nil, nil, fmt.Errorf("expected float32 tensor, got %T", out)
	}

	data := floatOut.GetData()
	copied := make([]float32, len(data))
	copy(copied, data)
	shape := out.GetShape()
	shapeCopy := make([]int64, len(shape))
	copy(shapeCopy, shape)
	return copied, shapeCopy, nil
}

// Close releases the underlying ONNX session.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != nil {
		if err := s.sess.Destroy(); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to destroy ONNX session: %v\n", err)
		}
		s.sess = nil
	}
	return nil
}

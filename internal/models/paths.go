// Package models resolves the locations of the pretrained ONNX model files
// consumed by the pipeline. The models themselves are opaque, versioned
// artifacts; this package only knows their names and where to find them.
package models

import (
	"errors"
	"os"
	"path/filepath"
)

// Model file name constants to avoid typos and ensure consistency.
const (
	// RelevanceClassifier decides whether a frame shows a score table.
	RelevanceClassifier = "relevant_frames_resnet.onnx"

	// CharacterDetector locates character bounding boxes in a table crop.
	CharacterDetector = "digits_yolo.onnx"

	// CharacterClassifier assigns a digit or decimal-point symbol to a crop.
	CharacterClassifier = "digits_resnet.onnx"
)

// Default models directory.
const DefaultModelsDir = "models"

// Environment variable for models directory override.
const EnvModelsDir = "TALLYVID_MODELS_DIR"

// findProjectRoot finds the project root by looking for go.mod.
func findProjectRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", errors.New("could not find project root (go.mod not found)")
}

// GetModelsDir returns the models directory path from various sources.
// Priority: 1. Explicit modelsDir parameter, 2. Environment variable,
// 3. Project root + default.
func GetModelsDir(modelsDir string) string {
	if modelsDir != "" {
		return modelsDir
	}
	if envDir := os.Getenv(EnvModelsDir); envDir != "" {
		return envDir
	}
	if projectRoot, err := findProjectRoot(); err == nil {
		return filepath.Join(projectRoot, DefaultModelsDir)
	}
	return DefaultModelsDir
}

// RelevancePath returns the full path of the frame-relevance model.
func RelevancePath(modelsDir string) string {
	return filepath.Join(GetModelsDir(modelsDir), RelevanceClassifier)
}

// DetectorPath returns the full path of the character-detector model.
func DetectorPath(modelsDir string) string {
	return filepath.Join(GetModelsDir(modelsDir), CharacterDetector)
}

// ClassifierPath returns the full path of the character-classifier model.
func ClassifierPath(modelsDir string) string {
	return filepath.Join(GetModelsDir(modelsDir), CharacterClassifier)
}

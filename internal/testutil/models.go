package testutil

import (
	"errors"

	"github.com/tallyvid/tallyvid/internal/onnx"
)

// ScriptedModel replays queued outputs, one per Run call, in order. It
// satisfies the Inferencer interfaces of the detect and classify packages.
type ScriptedModel struct {
	Outputs [][]float32
	Shapes  [][]int64
	Err     error

	Calls int
}

// Run returns the next scripted output.
func (m *ScriptedModel) Run(t onnx.Tensor) ([]float32, []int64, error) {
	if m.Err != nil {
		return nil, nil, m.Err
	}
	if m.Calls >= len(m.Outputs) {
		return nil, nil, errors.New("scripted model exhausted")
	}
	out := m.Outputs[m.Calls]
	shape := m.Shapes[m.Calls]
	m.Calls++
	return out, shape, nil
}

// Script appends one output with its shape.
func (m *ScriptedModel) Script(out []float32, shape []int64) *ScriptedModel {
	m.Outputs = append(m.Outputs, out)
	m.Shapes = append(m.Shapes, shape)
	return m
}

// ClassLogits builds an 11-way logit vector peaking at classIdx.
func ClassLogits(classIdx int) []float32 {
	logits := make([]float32, 11)
	logits[classIdx] = 10
	return logits
}

// DetectionRows flattens detection rows of [x1 y1 x2 y2 conf class] into the
// raw detector output layout with shape (1, n, 6).
func DetectionRows(rows ...[6]float32) ([]float32, []int64) {
	out := make([]float32, 0, len(rows)*6)
	for _, r := range rows {
		out = append(out, r[:]...)
	}
	return out, []int64{1, int64(len(rows)), 6}
}

// Package assemble turns classified characters into per-booklet scores. Rows
// are recovered from the vertical layout of the detected digits, characters
// are slotted into rows, and each row's characters are read left to right
// into a numeric value.
package assemble

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Score holds the values read from one booklet: one value per question plus
// the total written in the last table row.
type Score struct {
	Questions []float64
	Total     float64
}

// ZeroScore returns a score with every value at zero.
func ZeroScore(questionAmount int) Score {
	return Score{Questions: make([]float64, questionAmount)}
}

// questionKey names the i-th question field, 1-based.
func questionKey(i int) string { return fmt.Sprintf("question_%d", i+1) }

const totalKey = "total_score"

// MarshalJSON encodes the score as a flat object with question_1..question_N
// and total_score keys.
func (s Score) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteByte('{')
	for i, q := range s.Questions {
		if i > 0 {
			b.WriteByte(',')
		}
		fmt.Fprintf(&b, "%q:%s", questionKey(i), formatScoreValue(q))
	}
	if len(s.Questions) > 0 {
		b.WriteByte(',')
	}
	fmt.Fprintf(&b, "%q:%s", totalKey, formatScoreValue(s.Total))
	b.WriteByte('}')
	return []byte(b.String()), nil
}

// UnmarshalJSON decodes the flat object form. Question keys are read in
// order until the first missing one.
func (s *Score) UnmarshalJSON(data []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	s.Questions = nil
	for i := 0; ; i++ {
		v, ok := raw[questionKey(i)]
		if !ok {
			break
		}
		s.Questions = append(s.Questions, v)
	}
	s.Total = raw[totalKey]
	return nil
}

// MarshalYAML mirrors the JSON form, keeping the question keys in order.
func (s Score) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, v float64) {
		node.Content = append(node.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: formatScoreValue(v)})
	}
	for i, q := range s.Questions {
		add(questionKey(i), q)
	}
	add(totalKey, s.Total)
	return node, nil
}

// formatScoreValue renders a float without exponent notation and with at
// least one decimal, matching the report format consumers expect.
func formatScoreValue(v float64) string {
	out := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(out, ".") {
		out += ".0"
	}
	return out
}

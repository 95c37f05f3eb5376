package assemble

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSanitizeScoreString_Charset verifies sanitized output holds only digits
// and at most one interior dot.
func TestSanitizeScoreString_Charset(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("output contains only digits and at most one dot", prop.ForAll(
		func(s string) bool {
			out := SanitizeScoreString(s)
			dots := 0
			for _, r := range out {
				switch {
				case r >= '0' && r <= '9':
				case r == '.':
					dots++
				default:
					return false
				}
			}
			if dots > 1 {
				return false
			}
			return !strings.HasPrefix(out, ".") && !strings.HasSuffix(out, ".")
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestSanitizeScoreString_Idempotent verifies sanitizing twice changes nothing.
func TestSanitizeScoreString_Idempotent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("sanitize is idempotent", prop.ForAll(
		func(s string) bool {
			once := SanitizeScoreString(s)
			return SanitizeScoreString(once) == once
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}

// TestSlotIndex_Bounds verifies slot indices stay inside the row range.
func TestSlotIndex_Bounds(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("slot index is in [0, numRows-1]", prop.ForAll(
		func(yCenter, yMin, slotHeight float64, numRows int) bool {
			i := slotIndex(yCenter, yMin, slotHeight, numRows)
			return i >= 0 && i <= numRows-1
		},
		gen.Float64Range(-1000, 1000),
		gen.Float64Range(0, 500),
		gen.Float64Range(1, 100),
		gen.IntRange(1, 20),
	))

	properties.TestingRun(t)
}

// TestSlotIndex_Monotonic verifies lower characters never land in earlier rows.
func TestSlotIndex_Monotonic(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("slot index is monotonic in y", prop.ForAll(
		func(y1, y2, slotHeight float64, numRows int) bool {
			if y1 > y2 {
				y1, y2 = y2, y1
			}
			i1 := slotIndex(y1, 0, slotHeight, numRows)
			i2 := slotIndex(y2, 0, slotHeight, numRows)
			return i1 <= i2
		},
		gen.Float64Range(0, 1000),
		gen.Float64Range(0, 1000),
		gen.Float64Range(1, 100),
		gen.IntRange(2, 20),
	))

	properties.TestingRun(t)
}

package assemble

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tallyvid/tallyvid/internal/classify"
	"github.com/tallyvid/tallyvid/internal/utils"
)

// char builds a character with a 10x20 box centered at (cx, cy).
func char(symbol rune, cx, cy float64) classify.Character {
	return classify.Character{
		Symbol: symbol,
		Box:    utils.NewBox(cx-5, cy-10, cx+5, cy+10),
	}
}

func TestAssemble_TwoRows(t *testing.T) {
	// Rows sit at y 25 and 425 in a nine-row layout, 50 apart per slot.
	chars := []classify.Character{
		char('1', 15, 25),
		char('5', 33, 25),
		char('1', 15, 425),
		char('2', 33, 425),
	}

	score := Assemble(chars, 8, 9)
	require.Len(t, score.Questions, 8)
	assert.InDelta(t, 15, score.Questions[0], 1e-9)
	for i := 1; i < 8; i++ {
		assert.Zerof(t, score.Questions[i], "question %d", i+1)
	}
	assert.InDelta(t, 12, score.Total, 1e-9)
}

func TestAssemble_SingleQuestionWithTotal(t *testing.T) {
	// "10" on the first question row, "20" on the total row. The total reads
	// exactly 20.0 and stays unclamped.
	chars := []classify.Character{
		char('1', 15, 25),
		char('0', 33, 25),
		char('2', 15, 425),
		char('0', 33, 425),
	}

	score := Assemble(chars, 1, 9)
	require.Len(t, score.Questions, 1)
	assert.InDelta(t, 10, score.Questions[0], 1e-9)
	assert.InDelta(t, 20, score.Total, 1e-9)
}

func TestAssemble_SatelliteJoinsNearestDigit(t *testing.T) {
	chars := []classify.Character{
		char('1', 15, 25),
		char('.', 24, 30), // nearest digit is the '1' at (15, 25)
		char('5', 33, 25),
		char('9', 15, 425),
	}

	score := Assemble(chars, 8, 9)
	assert.InDelta(t, 1.5, score.Questions[0], 1e-9)
	assert.InDelta(t, 9, score.Total, 1e-9)
}

func TestAssemble_MiddleRowsSlotByRounding(t *testing.T) {
	chars := []classify.Character{
		char('3', 15, 25),
		char('7', 15, 177), // closest slot is row 3 at y 175
		char('8', 15, 425),
	}

	score := Assemble(chars, 8, 9)
	assert.InDelta(t, 3, score.Questions[0], 1e-9)
	assert.InDelta(t, 7, score.Questions[3], 1e-9)
	assert.InDelta(t, 8, score.Total, 1e-9)
}

func TestAssemble_OverflowQuestionRescaled(t *testing.T) {
	// "75" in a question row reads as 7.5; the dot went undetected.
	chars := []classify.Character{
		char('7', 15, 25),
		char('5', 33, 25),
		char('1', 15, 425),
	}

	score := Assemble(chars, 8, 9)
	assert.InDelta(t, 7.5, score.Questions[0], 1e-9)
}

func TestAssemble_NoDigits(t *testing.T) {
	assert.Equal(t, ZeroScore(8), Assemble(nil, 8, 9))

	onlyDots := []classify.Character{char('.', 10, 10)}
	assert.Equal(t, ZeroScore(8), Assemble(onlyDots, 8, 9))
}

func TestAssemble_SingleRowCollapsesToFirstSlot(t *testing.T) {
	chars := []classify.Character{
		char('4', 15, 100),
		char('2', 33, 100),
	}

	score := Assemble(chars, 8, 9)
	// One vertical anchor means no slot height; everything lands in row one.
	assert.InDelta(t, 4.2, score.Questions[0], 1e-9)
	assert.Zero(t, score.Total)
}

func TestAssemble_EmitsExactlyQuestionAmount(t *testing.T) {
	chars := []classify.Character{
		char('1', 15, 25),
		char('2', 15, 425),
	}

	score := Assemble(chars, 3, 9)
	assert.Len(t, score.Questions, 3)
}

func TestSanitizeScoreString(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.5", "1.5"},
		{"15.", "15"},
		{".5", "5"},
		{"..5", "5"},
		{"1.2.3", "1.23"},
		{"a1b2", "12"},
		{".", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeScoreString(tt.in))
		})
	}
}

func TestClampScoreValue(t *testing.T) {
	// Question rows saturate below 20.
	assert.InDelta(t, 2.0, clampScoreValue(20, false), 1e-9)
	assert.InDelta(t, 7.5, clampScoreValue(75, false), 1e-9)
	assert.InDelta(t, 19.9, clampScoreValue(19.9, false), 1e-9)

	// The total row may hold 20 exactly.
	assert.InDelta(t, 20, clampScoreValue(20, true), 1e-9)
	assert.InDelta(t, 2.05, clampScoreValue(20.5, true), 1e-9)
	assert.InDelta(t, 1.0, clampScoreValue(100, true), 1e-9)
}

func TestIntegerDigits(t *testing.T) {
	assert.Equal(t, 1, integerDigits(7.5))
	assert.Equal(t, 2, integerDigits(75))
	assert.Equal(t, 3, integerDigits(100))
	assert.Equal(t, 1, integerDigits(0.5))
}

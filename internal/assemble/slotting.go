package assemble

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/tallyvid/tallyvid/internal/classify"
)

// maxQuestionScore is the largest value a single question can hold. Question
// rows saturate at it; only the total row may reach it exactly.
const maxQuestionScore = 20.0

// Assemble reads a booklet score from classified characters. numRows counts
// the table rows including the final total row; questionAmount is the number
// of question values to emit.
func Assemble(chars []classify.Character, questionAmount, numRows int) Score {
	digits := make([]classify.Character, 0, len(chars))
	satellites := make([]classify.Character, 0)
	for _, c := range chars {
		if c.IsDigit() {
			digits = append(digits, c)
		} else if c.Symbol == '.' {
			satellites = append(satellites, c)
		}
	}
	if len(digits) == 0 {
		return ZeroScore(questionAmount)
	}

	yMin, yMax := rowAnchors(digits)
	slotHeight := 0.0
	if numRows > 1 && yMax > yMin {
		slotHeight = (yMax - yMin) / float64(numRows-1)
	}

	slots := make([][]classify.Character, numRows)
	for _, d := range digits {
		i := slotIndex(d.Box.CenterY(), yMin, slotHeight, numRows)
		slots[i] = append(slots[i], d)
	}
	for _, s := range satellites {
		// A decimal point belongs to the row of its nearest digit; its own
		// y-center is too small to place reliably.
		nearest := nearestDigit(s, digits)
		i := slotIndex(nearest.Box.CenterY(), yMin, slotHeight, numRows)
		slots[i] = append(slots[i], s)
	}

	values := make([]float64, numRows)
	for i, slot := range slots {
		values[i] = readRowValue(slot, i == numRows-1)
	}

	score := ZeroScore(questionAmount)
	for i := range score.Questions {
		if i < numRows-1 {
			score.Questions[i] = values[i]
		}
	}
	if numRows > 0 {
		score.Total = values[numRows-1]
	}
	return score
}

// rowAnchors estimates the vertical extent of the digit rows. Digit centers
// are clustered so a stray digit inside a row does not shift the anchors;
// the anchors are the extreme cluster means.
func rowAnchors(digits []classify.Character) (float64, float64) {
	centers := make([]float64, 0, len(digits))
	var heightSum float64
	heightCount := 0
	for _, d := range digits {
		centers = append(centers, d.Box.CenterY())
		if h := d.Box.Height(); h > 0 {
			heightSum += h
			heightCount++
		}
	}

	yMin, yMax := centers[0], centers[0]
	for _, c := range centers[1:] {
		yMin = math.Min(yMin, c)
		yMax = math.Max(yMax, c)
	}
	if heightCount == 0 {
		return yMin, yMax
	}

	eps := heightSum / float64(heightCount) * epsHeightFactor
	clustered := clusterRowCenters(centers, eps)
	if len(clustered) == 0 {
		return yMin, yMax
	}
	yMin, yMax = clustered[0], clustered[0]
	for _, c := range clustered[1:] {
		yMin = math.Min(yMin, c)
		yMax = math.Max(yMax, c)
	}
	return yMin, yMax
}

// slotIndex maps a y-center to a row index, clamped into [0, numRows-1].
func slotIndex(yCenter, yMin, slotHeight float64, numRows int) int {
	if slotHeight == 0 {
		return 0
	}
	i := int(math.Round((yCenter - yMin) / slotHeight))
	if i < 0 {
		i = 0
	}
	if i > numRows-1 {
		i = numRows - 1
	}
	return i
}

// nearestDigit returns the digit whose center is closest to the character's
// center. digits must be non-empty.
func nearestDigit(c classify.Character, digits []classify.Character) classify.Character {
	best := digits[0]
	bestDist := math.Inf(1)
	for _, d := range digits {
		dx := c.Box.CenterX() - d.Box.CenterX()
		dy := c.Box.CenterY() - d.Box.CenterY()
		if dist := dx*dx + dy*dy; dist < bestDist {
			bestDist = dist
			best = d
		}
	}
	return best
}

// readRowValue assembles one row: characters sorted left to right, joined,
// sanitized and parsed. Implausibly large values are rescaled.
func readRowValue(slot []classify.Character, isTotal bool) float64 {
	if len(slot) == 0 {
		return 0
	}
	sort.SliceStable(slot, func(i, j int) bool {
		return slot[i].Box.CenterX() < slot[j].Box.CenterX()
	})
	var b strings.Builder
	for _, c := range slot {
		b.WriteRune(c.Symbol)
	}
	sanitized := SanitizeScoreString(b.String())
	if sanitized == "" {
		return 0
	}
	value, err := strconv.ParseFloat(sanitized, 64)
	if err != nil {
		return 0
	}
	return clampScoreValue(value, isTotal)
}

// SanitizeScoreString keeps digits and at most one decimal point, then
// strips dots from both ends.
func SanitizeScoreString(s string) string {
	var b strings.Builder
	dotSeen := false
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !dotSeen:
			b.WriteRune(r)
			dotSeen = true
		}
	}
	return strings.Trim(b.String(), ".")
}

// clampScoreValue rescales values the score range cannot hold, which happen
// when the decimal point between two digits goes undetected. Dividing by a
// power of ten restores a single integer digit: 75 becomes 7.5. Question
// rows cannot reach the maximum; the total row can hold it exactly.
func clampScoreValue(v float64, isTotal bool) float64 {
	overflow := v >= maxQuestionScore
	if isTotal {
		overflow = v > maxQuestionScore
	}
	if !overflow {
		return v
	}
	return v / math.Pow(10, float64(integerDigits(v)-1))
}

// integerDigits counts the decimal digits of the integer part of v.
func integerDigits(v float64) int {
	n := int(v)
	if n < 0 {
		n = -n
	}
	digits := 1
	for n >= 10 {
		n /= 10
		digits++
	}
	return digits
}

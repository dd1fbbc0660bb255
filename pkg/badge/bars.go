package badge

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/samber/lo"
)

const (
	// BarCount is the number of equalizer bars in a badge
	BarCount = 84

	minBarDurationMs = 1000
	maxBarDurationMs = 1350

	barMarkup = "<div class='bar'></div>"
)

// BarGen returns one CSS rule per bar, each bar 4px further right than the last
// and animating for a random 1000-1350ms so no two renders look the same.
func BarGen(barCount int) string {
	return barGen(barCount, rand.Intn)
}

func barGen(barCount int, intN func(int) int) string {
	rules := lo.Times(barCount, func(i int) string {
		duration := minBarDurationMs + intN(maxBarDurationMs-minBarDurationMs+1)
		return fmt.Sprintf(".bar:nth-child(%d)  { left: %dpx; animation-duration: %dms; }", i+1, 1+4*i, duration)
	})
	return strings.Join(rules, "")
}

// BarMarkup returns the empty divs the bar rules style
func BarMarkup(barCount int) string {
	return strings.Repeat(barMarkup, barCount)
}

package badge

import (
	"regexp"
	"strconv"
	"strings"
	"testing"
)

var barRule = regexp.MustCompile(`\.bar:nth-child\((\d+)\)  \{ left: (\d+)px; animation-duration: (\d+)ms; \}`)

func TestBarGen(t *testing.T) {
	css := BarGen(BarCount)

	rules := barRule.FindAllStringSubmatch(css, -1)
	if len(rules) != BarCount {
		t.Fatalf("got %d rules, want %d", len(rules), BarCount)
	}
	if joined := barRule.ReplaceAllString(css, ""); joined != "" {
		t.Errorf("unexpected text between rules: %q", joined)
	}

	for i, rule := range rules {
		nth, _ := strconv.Atoi(rule[1])
		left, _ := strconv.Atoi(rule[2])
		duration, _ := strconv.Atoi(rule[3])

		if nth != i+1 {
			t.Errorf("rule %d targets child %d", i, nth)
		}
		if want := 1 + 4*i; left != want {
			t.Errorf("rule %d: left %dpx, want %dpx", i, left, want)
		}
		if duration < 1000 || duration > 1350 {
			t.Errorf("rule %d: duration %dms out of range", i, duration)
		}
	}
}

func TestBarGenIsRandomPerCall(t *testing.T) {
	if BarGen(BarCount) == BarGen(BarCount) {
		t.Error("two renders produced identical bar timings")
	}
}

func TestBarGenDurationBounds(t *testing.T) {
	low := barGen(2, func(int) int { return 0 })
	if !strings.Contains(low, "animation-duration: 1000ms") {
		t.Errorf("lowest draw should give 1000ms: %s", low)
	}

	high := barGen(2, func(n int) int { return n - 1 })
	if !strings.Contains(high, "animation-duration: 1350ms") {
		t.Errorf("highest draw should give 1350ms: %s", high)
	}
}

func TestBarMarkup(t *testing.T) {
	if got := strings.Count(BarMarkup(BarCount), "<div class='bar'></div>"); got != BarCount {
		t.Errorf("got %d bars, want %d", got, BarCount)
	}
}

// Package phrase supplies reference texts for capture sessions.
package phrase

import (
	"bufio"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"
)

// defaults cover the common letter inventory well enough for a first
// profile when no phrase file is installed.
var defaults = []string{
	"the quick brown fox jumps over the lazy dog",
	"pack my box with five dozen liquor jugs",
	"how vexingly quick daft zebras jump",
	"sphinx of black quartz judge my vow",
	"the five boxing wizards jump quickly",
	"съешь же ещё этих мягких французских булок да выпей чаю",
}

// Load reads one phrase per line from the provided file path. Blank
// lines and lines starting with '#' are skipped.
func Load(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only phrase file.
			_ = cerr
		}
	}()

	var phrases []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		phrases = append(phrases, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(phrases) == 0 {
		return nil, fmt.Errorf("phrase file is empty")
	}
	return phrases, nil
}

// LoadOrDefault loads phrases from path, falling back to the built-in
// set when the file does not exist.
func LoadOrDefault(path string) ([]string, error) {
	phrases, err := Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return phrases, nil
}

// Default returns the built-in phrase set.
func Default() []string {
	out := make([]string, len(defaults))
	copy(out, defaults)
	return out
}

// Picker selects reference phrases at random.
type Picker struct {
	rnd *rand.Rand
}

// NewPicker returns a Picker seeded with the current time.
func NewPicker() *Picker {
	return &Picker{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// Pick selects one phrase, honoring a minimum rune length when the set
// allows it.
func (p *Picker) Pick(phrases []string, minLen int) string {
	if len(phrases) == 0 {
		return ""
	}
	if minLen > 0 {
		eligible := make([]string, 0, len(phrases))
		for _, ph := range phrases {
			if len([]rune(ph)) >= minLen {
				eligible = append(eligible, ph)
			}
		}
		if len(eligible) > 0 {
			phrases = eligible
		}
	}
	return phrases[p.rnd.Intn(len(phrases))]
}

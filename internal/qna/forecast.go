package qna

import (
	"hash/fnv"
	"math/rand"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// conditions is the fixed forecast condition vocabulary.
var conditions = []string{
	"sunny", "partly cloudy", "overcast", "light rain",
	"scattered showers", "thunderstorms", "breezy", "humid", "dry", "drizzle",
}

// adviceOptions is the fixed advice vocabulary.
var adviceOptions = []string{
	"Carry a light jacket.",
	"Sunscreen recommended.",
	"Pack an umbrella just in case.",
	"Hydrate well.",
	"Good day for a walk.",
}

var titleCaser = cases.Title(language.English)

// Forecast is a simulated weather record for a (location, when) pair.
// Immutable once produced; the same inputs always yield the same record.
type Forecast struct {
	Location string `json:"location"`
	When     string `json:"when"`
	Summary  string `json:"summary"`
	High     int    `json:"temperature_high"`
	Low      int    `json:"temperature_low"`
	Advice   string `json:"advice"`
}

// Simulate produces a stable pseudo-forecast for the given location and time
// reference. The generator is seeded from the normalized inputs, so repeat
// calls with the same pair return identical records across process restarts.
//
// The draw order (high, low offset, condition, advice) is part of the
// contract: reordering changes every downstream value.
func Simulate(location, when string) Forecast {
	rng := rand.New(rand.NewSource(int64(seedFor(location, when))))

	high := 15 + rng.Intn(21) // [15, 35]
	low := high - (5 + rng.Intn(8))
	if low < 5 {
		low = 5
	}
	condition := conditions[rng.Intn(len(conditions))]
	advice := adviceOptions[rng.Intn(len(adviceOptions))]

	return Forecast{
		Location: titleCaser.String(location),
		When:     when,
		Summary:  condition,
		High:     high,
		Low:      low,
		Advice:   advice,
	}
}

// seedFor derives a stable 32-bit seed from the lower-cased, trimmed pair.
// FNV-1a is used for its stability across platforms and runs; the specific
// hash matters less than the reproducibility of the derived sequence.
func seedFor(location, when string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(location))))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(when))))
	return h.Sum32()
}

// Package export projects resampled series and summaries into chart, CSV and
// JSON payloads. Every temperature string the service emits is produced here.
package export

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ErrNonFinite is returned when a NaN or infinite temperature reaches an
// encoder.
var ErrNonFinite = errors.New("temperature is not a finite number")

// Celsius is a temperature that marshals as a JSON number with exactly one
// decimal place.
type Celsius float64

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// FormatTemp renders a temperature with one decimal, rounding half away from
// zero on the shortest decimal representation of v. NaN and infinities are
// rendered as "NaN", "+Inf" and "-Inf".
func FormatTemp(v float64) string {
	if !finite(v) {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	s := decimal.NewFromFloat(v).StringFixed(1)
	if s == "-0.0" {
		return "0.0"
	}
	return s
}

func (c Celsius) MarshalJSON() ([]byte, error) {
	if !finite(float64(c)) {
		return nil, ErrNonFinite
	}
	return []byte(FormatTemp(float64(c))), nil
}

func celsiusPtr(v *float64) *Celsius {
	if v == nil {
		return nil
	}
	c := Celsius(*v)
	return &c
}

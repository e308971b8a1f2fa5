// Package timex contains time helpers for configuration and the host clock.
package timex

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/dmitrijs2005/authentify/internal/server/models"
)

// Duration wraps time.Duration for JSON. It accepts strings such as "15m"
// and integer nanoseconds.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value)
		return nil
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return err
		}
		d.Duration = parsed
		return nil
	default:
		return errors.New("invalid duration")
	}
}

// Clock supplies the current time to hosts calling the registry.
type Clock interface {
	Now() models.Timestamp
}

// SystemClock reports Unix seconds.
type SystemClock struct{}

func (SystemClock) Now() models.Timestamp {
	return models.Timestamp(time.Now().Unix())
}

// Seconds converts d to registry time units, truncating sub-second parts.
// Negative durations become zero.
func Seconds(d time.Duration) models.Duration {
	if d < 0 {
		return 0
	}
	return models.Duration(d / time.Second)
}

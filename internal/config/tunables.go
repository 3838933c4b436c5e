package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// KeywordBucket awards Points once when any of its Keywords occurs in the text.
type KeywordBucket struct {
	Name     string   `toml:"name"`
	Points   float64  `toml:"points"`
	Keywords []string `toml:"keywords"`
}

// Tunables are the scoring and learning constants. The defaults reproduce
// the stock ranking; a TOML file may override any of them.
type Tunables struct {
	AgePointsPerDay float64         `toml:"age_points_per_day"`
	AgeCap          float64         `toml:"age_cap"`
	HighImportance  float64         `toml:"high_importance_points"`
	Flagged         float64         `toml:"flagged_points"`
	Attachments     float64         `toml:"attachment_points"`
	KeywordBuckets  []KeywordBucket `toml:"keyword_buckets"`
	HighThreshold   float64         `toml:"high_threshold"`
	MediumThreshold float64         `toml:"medium_threshold"`
	CompletedDelta  float64         `toml:"completed_delta"`
	SnoozeDelta     float64         `toml:"snooze_delta"`
	RepliedDelta    float64         `toml:"replied_delta"`
	ForwardedDelta  float64         `toml:"forwarded_delta"`
	WeightFloor     *float64        `toml:"weight_floor"`
	WeightCeiling   *float64        `toml:"weight_ceiling"`
	TimeDecay       float64         `toml:"time_decay"`
}

func DefaultTunables() Tunables {
	return Tunables{
		AgePointsPerDay: 10,
		AgeCap:          50,
		HighImportance:  30,
		Flagged:         25,
		Attachments:     15,
		KeywordBuckets: []KeywordBucket{
			{Name: "urgent", Points: 35, Keywords: []string{"urgent", "asap", "critical", "deadline", "today", "immediate"}},
			{Name: "action", Points: 20, Keywords: []string{"review", "approve", "feedback", "action", "required", "please respond"}},
			{Name: "follow_up", Points: 15, Keywords: []string{"follow up", "waiting for", "pending", "next step"}},
		},
		HighThreshold:   60,
		MediumThreshold: 30,
		CompletedDelta:  5,
		SnoozeDelta:     -3,
		TimeDecay:       0.95,
	}
}

// LoadTunables returns the defaults, overridden by the TOML file at path when one is given.
func LoadTunables(path string) (Tunables, error) {
	tunables := DefaultTunables()
	if path == "" {
		return tunables, nil
	}

	if _, err := toml.DecodeFile(path, &tunables); err != nil {
		return Tunables{}, fmt.Errorf("failed to load scoring config %s: %w", path, err)
	}
	if err := tunables.Validate(); err != nil {
		return Tunables{}, fmt.Errorf("scoring config %s: %w", path, err)
	}
	return tunables, nil
}

func (t Tunables) Validate() error {
	if t.MediumThreshold > t.HighThreshold {
		return fmt.Errorf("medium_threshold (%v) must not exceed high_threshold (%v)", t.MediumThreshold, t.HighThreshold)
	}
	if t.AgeCap < 0 || t.AgePointsPerDay < 0 {
		return fmt.Errorf("age points must not be negative")
	}
	if t.WeightFloor != nil && t.WeightCeiling != nil && *t.WeightFloor > *t.WeightCeiling {
		return fmt.Errorf("weight_floor must not exceed weight_ceiling")
	}
	return nil
}

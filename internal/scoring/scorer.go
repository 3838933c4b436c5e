// Package scoring turns a tracked message and the learned sender weights
// into a priority tier.
package scoring

import (
	"math"
	"strings"
	"time"

	"followup-tracker/internal/config"
	"followup-tracker/internal/model"
)

// Breakdown lists every term that went into a score. Terms are additive and
// the total is never clamped; only the tier is bucketed.
type Breakdown struct {
	Age            float64        `json:"age"`
	Importance     float64        `json:"importance"`
	Flagged        float64        `json:"flagged"`
	Attachments    float64        `json:"attachments"`
	Keywords       float64        `json:"keywords"`
	Learning       float64        `json:"learning"`
	Total          float64        `json:"total"`
	MatchedBuckets []string       `json:"matched_buckets"`
	Priority       model.Priority `json:"priority"`
}

type bucket struct {
	name     string
	points   float64
	keywords []string
}

// Scorer computes priority breakdowns from a fixed set of tunables.
type Scorer struct {
	tunables config.Tunables
	buckets  []bucket
}

// NewScorer lowercases the bucket keywords once up front.
func NewScorer(tunables config.Tunables) *Scorer {
	buckets := make([]bucket, 0, len(tunables.KeywordBuckets))
	for _, b := range tunables.KeywordBuckets {
		keywords := make([]string, 0, len(b.Keywords))
		for _, kw := range b.Keywords {
			if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
				keywords = append(keywords, kw)
			}
		}
		buckets = append(buckets, bucket{name: b.Name, points: b.Points, keywords: keywords})
	}
	return &Scorer{tunables: tunables, buckets: buckets}
}

// Score computes the breakdown for msg at the given instant. It has no side
// effects and never fails.
func (s *Scorer) Score(msg *model.TrackedMessage, weights model.LearningWeights, now time.Time) Breakdown {
	b := Breakdown{MatchedBuckets: []string{}}

	b.Age = s.ageTerm(msg.ReceivedAt, now)
	if msg.Importance == model.ImportanceHigh {
		b.Importance = s.tunables.HighImportance
	}
	if msg.IsFlagged {
		b.Flagged = s.tunables.Flagged
	}
	if msg.HasAttachments {
		b.Attachments = s.tunables.Attachments
	}

	text := strings.ToLower(msg.Body) + " " + strings.ToLower(msg.Subject)
	for _, bk := range s.buckets {
		if containsAny(text, bk.keywords) {
			b.Keywords += bk.points
			b.MatchedBuckets = append(b.MatchedBuckets, bk.name)
		}
	}

	if w := weights.SenderWeight(msg.SenderKey()); !math.IsNaN(w) && !math.IsInf(w, 0) {
		b.Learning = w
	}

	b.Total = b.Age + b.Importance + b.Flagged + b.Attachments + b.Keywords + b.Learning
	b.Priority = s.Classify(b.Total)
	return b
}

// Priority is a shortcut for Score(...).Priority.
func (s *Scorer) Priority(msg *model.TrackedMessage, weights model.LearningWeights, now time.Time) model.Priority {
	return s.Score(msg, weights, now).Priority
}

// Classify buckets a total; both thresholds are inclusive lower bounds.
func (s *Scorer) Classify(total float64) model.Priority {
	switch {
	case total >= s.tunables.HighThreshold:
		return model.PriorityHigh
	case total >= s.tunables.MediumThreshold:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}

// ageTerm rewards older items using fractional days. Unknown and future
// receive times count as zero age.
func (s *Scorer) ageTerm(received, now time.Time) float64 {
	if received.IsZero() || now.IsZero() {
		return 0
	}
	days := now.Sub(received).Hours() / 24
	if days <= 0 {
		return 0
	}
	return math.Min(days*s.tunables.AgePointsPerDay, s.tunables.AgeCap)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

package scoring

import "strings"

const (
	RecommendReview   = "Review the content and send your feedback"
	RecommendApprove  = "Review the request and approve or decline it"
	RecommendMeeting  = "Confirm whether you will attend the meeting"
	RecommendDeadline = "Check the deadline and plan your response"
	RecommendDefault  = "Reply to acknowledge and follow up"
)

// Recommend suggests the next step from the message body. The first
// matching rule wins.
func Recommend(body string) string {
	text := strings.ToLower(body)
	switch {
	case strings.Contains(text, "review") || strings.Contains(text, "feedback"):
		return RecommendReview
	case strings.Contains(text, "approve"):
		return RecommendApprove
	case strings.Contains(text, "meeting"):
		return RecommendMeeting
	case strings.Contains(text, "deadline"):
		return RecommendDeadline
	default:
		return RecommendDefault
	}
}

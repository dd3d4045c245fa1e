package models

// ProposalView is a proposal as returned to clients. ImageURLs is only
// populated when ImagesResolved is true; otherwise clients fall back to
// ImageKeys.
type ProposalView struct {
	Proposal
	ImageURLs      []string `json:"image_urls,omitempty"`
	ImagesResolved bool     `json:"images_resolved"`
}

// MatchView is a match with its proposal and the partner's recorded swipe
type MatchView struct {
	Match
	Proposal         *ProposalView `json:"proposal,omitempty"`
	PartnerDirection Direction     `json:"partner_direction"`
}

// CoupleView is a couple with its current members
type CoupleView struct {
	Couple
	Members []User `json:"members"`
}

// MemberStats counts proposals by author from one member's point of view
type MemberStats struct {
	UserID              string  `json:"user_id"`
	Sent                int     `json:"sent"`
	SentMatched         int     `json:"sent_matched"`
	SentSuccessRate     float64 `json:"sent_success_rate"`
	Received            int     `json:"received"`
	ReceivedMatched     int     `json:"received_matched"`
	ReceivedSuccessRate float64 `json:"received_success_rate"`
}

// CoupleStats is the read-side aggregation for a couple
type CoupleStats struct {
	CoupleID         string        `json:"couple_id"`
	Members          []MemberStats `json:"members"`
	TotalMatches     int           `json:"total_matches"`
	CompletedMatches int           `json:"completed_matches"`
	ConfirmedPlans   int           `json:"confirmed_plans"`
	Achieved         int           `json:"achieved"`
}

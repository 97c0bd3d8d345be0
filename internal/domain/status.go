package domain

// Status is the lifecycle state of a submission.
type Status string

// Submission states.
const (
	StatusDraft       Status = "draft"
	StatusSubmitted   Status = "submitted"
	StatusUnderReview Status = "under-review"
	StatusPublished   Status = "published"
	StatusRejected    Status = "rejected"
)

// Actor is the capacity in which a user drives a transition.
type Actor string

// Actors.
const (
	ActorOwner    Actor = "owner"
	ActorReviewer Actor = "reviewer"
)

// Transition is one permitted edge of the lifecycle.
type Transition struct {
	From  Status `json:"from"`
	To    Status `json:"to"`
	Actor Actor  `json:"actor"`
}

// Every legal single-step transition. Review cannot be skipped and the
// terminal states have no outgoing edges.
var transitions = []Transition{
	{From: StatusDraft, To: StatusSubmitted, Actor: ActorOwner},
	// Withdraw: the owner's only way back to draft, and only before review starts.
	{From: StatusSubmitted, To: StatusDraft, Actor: ActorOwner},
	{From: StatusSubmitted, To: StatusUnderReview, Actor: ActorReviewer},
	{From: StatusUnderReview, To: StatusPublished, Actor: ActorReviewer},
	{From: StatusUnderReview, To: StatusRejected, Actor: ActorReviewer},
	{From: StatusUnderReview, To: StatusDraft, Actor: ActorReviewer},
}

// Transitions returns a copy of the transition table.
func Transitions() []Transition {
	return append([]Transition(nil), transitions...)
}

// Valid reports whether s is a known state.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusUnderReview, StatusPublished, StatusRejected:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusRejected
}

// Editable reports whether the owner may change content in s.
func (s Status) Editable() bool {
	return s == StatusDraft
}

// Deletable reports whether the owner may remove a submission in s.
func (s Status) Deletable() bool {
	return s == StatusDraft || s == StatusRejected
}

// CanTransition reports whether actor may move a submission from s to to.
func (s Status) CanTransition(to Status, actor Actor) bool {
	for _, t := range transitions {
		if t.From == s && t.To == to && t.Actor == actor {
			return true
		}
	}
	return false
}

// ReviewDecision is a reviewer's action on a submission.
type ReviewDecision string

// Review decisions.
const (
	DecisionStartReview    ReviewDecision = "start_review"
	DecisionPublish        ReviewDecision = "publish"
	DecisionReject         ReviewDecision = "reject"
	DecisionRequestChanges ReviewDecision = "request_changes"
)

// Target returns the state a decision moves a submission into.
func (d ReviewDecision) Target() (Status, bool) {
	switch d {
	case DecisionStartReview:
		return StatusUnderReview, true
	case DecisionPublish:
		return StatusPublished, true
	case DecisionReject:
		return StatusRejected, true
	case DecisionRequestChanges:
		return StatusDraft, true
	}
	return "", false
}

package applications

import "time"

type ActorKind string

const (
	ActorApplicant ActorKind = "applicant"
	ActorEmployer  ActorKind = "employer"
	ActorAdmin     ActorKind = "admin"
)

// Actor is whoever requests a transition.
type Actor struct {
	Kind ActorKind
	ID   string
}

type Application struct {
	ID            string       `json:"id"`
	ProfileID     string       `json:"profileId"`
	OpportunityID string       `json:"opportunityId"`
	State         State        `json:"state"`
	CoverLetter   string       `json:"coverLetter"`
	ResumeID      string       `json:"resumeId,omitempty"`
	Feedback      string       `json:"feedback,omitempty"`
	InterviewAt   *time.Time   `json:"interviewAt,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	History       []Transition `json:"history,omitempty"`
}

// Transition is one recorded state change. From is empty for creation.
type Transition struct {
	From      State     `json:"from"`
	To        State     `json:"to"`
	ActorKind ActorKind `json:"actorKind"`
	ActorID   string    `json:"actorId"`
	Feedback  string    `json:"feedback,omitempty"`
	At        time.Time `json:"at"`
}

type SubmitRequest struct {
	OpportunityID string `json:"opportunityId" validate:"notblank,max=128"`
	CoverLetter   string `json:"coverLetter" validate:"notblank,max=20000"`
	ResumeID      string `json:"resumeId" validate:"max=128"`
}

type TransitionRequest struct {
	State       string     `json:"state" validate:"notblank"`
	Feedback    string     `json:"feedback" validate:"max=5000"`
	InterviewAt *time.Time `json:"interviewAt"`
}

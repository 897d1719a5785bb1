package models

import (
	"time"
)

const (
	LabStatusPublished = "published"

	EventLabPublished = "lab.published"
)

// Lab is the document stored for an approved challenge submission. Only the
// hash of the flag is ever kept.
type Lab struct {
	Title             string    `json:"title" firestore:"title"`
	Description       string    `json:"description" firestore:"description"`
	ChallengeType     string    `json:"challengeType" firestore:"challengeType"`
	AuthorName        string    `json:"authorName" firestore:"authorName"`
	FlagHash          string    `json:"flagHash" firestore:"flagHash"`
	Solution          string    `json:"solution" firestore:"solution"`
	ExtraNotes        *string   `json:"extraNotes" firestore:"extraNotes"`
	PointsToUnlock    int       `json:"pointsToUnlock" firestore:"pointsToUnlock"`
	PointsReward      int       `json:"pointsReward" firestore:"pointsReward"`
	Status            string    `json:"status" firestore:"status"`
	ApprovedAt        time.Time `json:"approvedAt" firestore:"approvedAt"`
	ApprovedBy        string    `json:"approvedBy" firestore:"approvedBy"`
	SubmittedAt       time.Time `json:"submittedAt" firestore:"submittedAt"`
	GithubIssueNumber int       `json:"githubIssueNumber" firestore:"githubIssueNumber"`
	GithubIssueURL    string    `json:"githubIssueUrl" firestore:"githubIssueUrl"`
	SubmittedByGithub string    `json:"submittedByGithub" firestore:"submittedByGithub"`
	LastSyncedAt      time.Time `json:"lastSyncedAt" firestore:"lastSyncedAt"`
}

// Fields returns the document as a field map for merge writes. extraNotes is
// always present; a nil value marks the optional notes as absent.
func (l *Lab) Fields() map[string]interface{} {
	var notes interface{}
	if l.ExtraNotes != nil {
		notes = *l.ExtraNotes
	}
	return map[string]interface{}{
		"title":             l.Title,
		"description":       l.Description,
		"challengeType":     l.ChallengeType,
		"authorName":        l.AuthorName,
		"flagHash":          l.FlagHash,
		"solution":          l.Solution,
		"extraNotes":        notes,
		"pointsToUnlock":    l.PointsToUnlock,
		"pointsReward":      l.PointsReward,
		"status":            l.Status,
		"approvedAt":        l.ApprovedAt,
		"approvedBy":        l.ApprovedBy,
		"submittedAt":       l.SubmittedAt,
		"githubIssueNumber": l.GithubIssueNumber,
		"githubIssueUrl":    l.GithubIssueURL,
		"submittedByGithub": l.SubmittedByGithub,
		"lastSyncedAt":      l.LastSyncedAt,
	}
}

// Event Bus models
type Event struct {
	ID        string                 `json:"id"`
	Type      string                 `json:"type"`
	Source    string                 `json:"source"`
	Data      map[string]interface{} `json:"data"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]string      `json:"metadata,omitempty"`
}

type PublishResponse struct {
	Status     string `json:"status"`
	DocumentID string `json:"document_id,omitempty"`
	Reason     string `json:"reason,omitempty"`
}

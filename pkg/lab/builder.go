package lab

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/ctf-labs/lab-publisher/pkg/common/models"
	"github.com/ctf-labs/lab-publisher/pkg/issue"
)

const (
	DefaultPointsToUnlock = 3
	DefaultPointsReward   = 10
)

// IssueMeta is the tracker metadata that travels alongside the issue body.
type IssueMeta struct {
	Number      int
	URL         string
	CreatedAt   string
	SubmittedBy string
	ApprovedBy  string
}

type Builder struct {
	now func() time.Time
}

func NewBuilder(now func() time.Time) *Builder {
	if now == nil {
		now = time.Now
	}
	return &Builder{now: now}
}

func (b *Builder) Build(sub *issue.Submission, meta IssueMeta) *models.Lab {
	processedAt := b.now().UTC()

	return &models.Lab{
		Title:             sub.ChallengeName,
		Description:       sub.ChallengeDescription,
		ChallengeType:     sub.ChallengeType,
		AuthorName:        sub.SubmitterName,
		FlagHash:          HashFlag(sub.Flag),
		Solution:          sub.Solution,
		ExtraNotes:        sub.ExtraDetails,
		PointsToUnlock:    DefaultPointsToUnlock,
		PointsReward:      DefaultPointsReward,
		Status:            models.LabStatusPublished,
		ApprovedAt:        processedAt,
		ApprovedBy:        meta.ApprovedBy,
		SubmittedAt:       ParseSubmittedAt(meta.CreatedAt, processedAt),
		GithubIssueNumber: meta.Number,
		GithubIssueURL:    meta.URL,
		SubmittedByGithub: meta.SubmittedBy,
		LastSyncedAt:      processedAt,
	}
}

// HashFlag returns the hex SHA-256 of the trimmed flag.
func HashFlag(flag string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(flag)))
	return hex.EncodeToString(sum[:])
}

var submittedAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseSubmittedAt parses an ISO-8601 timestamp. Anything unparsable yields
// fallback without an error.
func ParseSubmittedAt(raw string, fallback time.Time) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	for _, layout := range submittedAtLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	return fallback
}

func DocumentID(issueNumber int) string {
	return fmt.Sprintf("issue-%d", issueNumber)
}

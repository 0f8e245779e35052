package services

import (
	"strings"

	"github.com/fogiking/formpulse/internal/store"
)

// VoteOutcome reports what a vote attempt did.
type VoteOutcome string

const (
	VoteRecorded     VoteOutcome = "recorded"
	VoteAlreadyVoted VoteOutcome = "already_voted"
	VoteNotFound     VoteOutcome = "not_found"
)

// VoteStore abstracts the repository operation the vote ledger needs. The
// ledger check, counter bump and dedup record happen atomically inside the
// store so concurrent requests from one voter count at most once.
type VoteStore interface {
	VoteOnce(responseID, questionID, voterKey string) (store.VoteResult, error)
}

// VoteService is the vote ledger: it lets a voter upvote a specific answer at
// most once, on top of the repository's idempotent-miss counter.
type VoteService struct {
	store VoteStore
}

func NewVoteService(st VoteStore) *VoteService {
	return &VoteService{store: st}
}

// Vote increments the (responseID, questionID) answer's counter unless this
// voter already did.
func (s *VoteService) Vote(responseID, questionID, voterKey string) (VoteOutcome, error) {
	if strings.TrimSpace(voterKey) == "" {
		return "", NewInvalidError("voter key required")
	}
	res, err := s.store.VoteOnce(responseID, questionID, voterKey)
	if err != nil {
		return "", err
	}
	switch res {
	case store.VoteCounted:
		return VoteRecorded, nil
	case store.VoteDuplicate:
		return VoteAlreadyVoted, nil
	default:
		return VoteNotFound, nil
	}
}

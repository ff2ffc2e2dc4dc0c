package domain

import (
	"errors"
	"fmt"
)

// ErrNoPriorResponses is returned by resume lookups when the participant
// identifier has no recorded rows. Recoverable: the respondent may retry
// or start fresh.
var ErrNoPriorResponses = errors.New("no prior responses recorded for participant")

// TransitionError reports an event fired from a phase that does not accept it.
type TransitionError struct {
	From  Phase
	Event string
}

func (e TransitionError) Error() string {
	return fmt.Sprintf("event %s not valid in phase %s", e.Event, e.From)
}

// DuplicateResponseError reports a second rating for the same
// (participant, pair) key.
type DuplicateResponseError struct {
	ParticipantID string
	PairID        int
}

func (e DuplicateResponseError) Error() string {
	return fmt.Sprintf("pair %d already answered by participant %s", e.PairID, e.ParticipantID)
}

// InvalidRatingError reports a rating outside the 1..7 scale.
type InvalidRatingError struct {
	Rating int
}

func (e InvalidRatingError) Error() string {
	return fmt.Sprintf("rating %d outside scale %d..%d", e.Rating, RatingMin, RatingMax)
}

package votes

import "errors"

// ErrVoteNotFound is returned when a vote id does not match any vote record
var ErrVoteNotFound = errors.New("vote not found")

// ErrVoterTaken is returned when a voter name is already reserved in a room
var ErrVoterTaken = errors.New("voter name already reserved")

package rooms

import "errors"

// ErrRoomNotFound is returned when a room id does not match any room
var ErrRoomNotFound = errors.New("room doesn't exist")

// ErrInvalidPassword is returned when the room password does not verify
var ErrInvalidPassword = errors.New("invalid password")

// ErrInvalidVoter is returned when a voter name fails validation
var ErrInvalidVoter = errors.New("invalid voter name")

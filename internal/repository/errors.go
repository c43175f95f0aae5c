package repository

import "errors"

// ErrSequenceContention means another writer advanced the counter between read and update.
var ErrSequenceContention = errors.New("invoice sequence advanced concurrently")

package task

import "errors"

// ErrCancelled is the result a cancelled task's awaiters observe. It is
// never surfaced to a caller that did not itself race with cancellation;
// a fresh requester instead gets a brand new, successor task (spec §7:
// "Cancelled: not an error visible to callers of the cancelled task;
// callers who initiated cancellation observe it; fresh requesters get a
// new task").
var ErrCancelled = errors.New("dice: task cancelled")

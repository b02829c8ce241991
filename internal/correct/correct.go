// Package correct implements the post-import correction passes: receiver
// backfill, self-reply reclassification, and contact merge/normalization.
//
// Each pass is a standalone, idempotent maintenance job over the full
// persisted contact/message set. None depend on import-session state, and
// they are expected to run exclusively, one at a time, to completion.
package correct

import "fmt"

// Result summarizes one correction pass. Skipped counts precondition
// misses (e.g. no earlier sender found), kept separate from true errors.
type Result struct {
	Examined int64
	Updated  int64
	Skipped  int64
	Errors   int64
}

// String renders the pass summary in run-output form.
func (r *Result) String() string {
	return fmt.Sprintf("examined %d, updated %d, skipped %d, errors %d",
		r.Examined, r.Updated, r.Skipped, r.Errors)
}

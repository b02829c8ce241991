package correct

import (
	"context"
	"fmt"
	"os"

	"github.com/hallamw/commlog/internal/store"
)

// BackfillReceivers assigns a receiver to every outgoing message that has
// none: in ascending timestamp order, each such message gets the sender of
// the nearest strictly-earlier message on the combined timeline. Messages
// with no earlier sender anywhere are skipped, not failed.
//
// The search is global, not per-conversation. That matches a single-device
// combined export; interleaved unrelated threads can misattribute.
func BackfillReceivers(ctx context.Context, s store.Store) (*Result, error) {
	msgs, err := s.MessagesMissingReceiver(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading messages missing receiver: %w", err)
	}

	res := &Result{}
	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Examined++

		senderID, err := s.NearestEarlierSender(ctx, m.Timestamp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: backfill message %d: %v\n", m.ID, err)
			res.Errors++
			continue
		}
		if senderID == nil {
			res.Skipped++
			continue
		}

		err = s.UpdateMessageAttribution(ctx, m.ID, store.AttributionUpdate{ReceiverID: senderID})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: backfill message %d: %v\n", m.ID, err)
			res.Errors++
			continue
		}
		res.Updated++
	}

	return res, nil
}

package correct

import (
	"context"
	"fmt"
	"os"

	"github.com/hallamw/commlog/internal/store"
)

// ReclassifySelfReplies repairs incoming messages that are actually the
// device owner's replies: for every FROM message whose content the
// classifier flags, the message becomes outgoing (direction TO), its
// sender is cleared, and its receiver set to the sender of the nearest
// strictly-earlier message on the combined timeline. Flagged messages
// with no earlier sender are skipped.
//
// Idempotent: reclassified messages leave the FROM set and are never
// revisited.
func ReclassifySelfReplies(ctx context.Context, s store.Store, c Classifier) (*Result, error) {
	if c == nil {
		c = NewWordlistClassifier()
	}

	msgs, err := s.MessagesFromWithContent(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading FROM messages: %w", err)
	}

	res := &Result{}
	to := store.DirectionTo

	for _, m := range msgs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Examined++

		if !c.Classify(m.Content) {
			continue
		}

		senderID, err := s.NearestEarlierSender(ctx, m.Timestamp)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: reclassify message %d: %v\n", m.ID, err)
			res.Errors++
			continue
		}
		if senderID == nil {
			res.Skipped++
			continue
		}

		err = s.UpdateMessageAttribution(ctx, m.ID, store.AttributionUpdate{
			Direction:   &to,
			ClearSender: true,
			ReceiverID:  senderID,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: reclassify message %d: %v\n", m.ID, err)
			res.Errors++
			continue
		}
		res.Updated++
	}

	return res, nil
}

package ingest

import (
	"context"
	"fmt"
	"os"

	"github.com/hallamw/commlog/internal/store"
)

// BatchWriter buffers parsed messages and commits them in bounded
// batches. Flushing resolves sender/receiver contacts, applies the
// duplicate check, and inserts; batches complete fully before the next
// begins, which serializes all contact creation. In dry-run mode a flush
// only counts would-be inserts and touches nothing persistent.
type BatchWriter struct {
	store       store.Store
	resolver    *Resolver
	opts        ImportOptions
	buf         []*ParsedMessage
	wouldImport int64
}

// NewBatchWriter returns a writer with the options' batch capacity.
func NewBatchWriter(s store.Store, opts ImportOptions) *BatchWriter {
	opts.Normalize()
	return &BatchWriter{
		store:    s,
		resolver: NewResolver(s),
		opts:     opts,
		buf:      make([]*ParsedMessage, 0, opts.BatchSize),
	}
}

// Add buffers a parsed message, flushing when the buffer is full.
func (w *BatchWriter) Add(ctx context.Context, sess *Session, pm *ParsedMessage) error {
	w.buf = append(w.buf, pm)
	if len(w.buf) >= w.opts.BatchSize {
		return w.Flush(ctx, sess)
	}
	return nil
}

// Flush commits the buffered messages. Individual persistence failures
// are logged and counted, never aborting the batch; only context-level
// failures propagate.
func (w *BatchWriter) Flush(ctx context.Context, sess *Session) error {
	if len(w.buf) == 0 {
		return nil
	}
	defer func() { w.buf = w.buf[:0] }()

	if w.opts.DryRun {
		w.wouldImport += int64(len(w.buf))
		return nil
	}

	for _, pm := range w.buf {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := w.writeOne(ctx, sess, pm); err != nil {
			if w.opts.ErrorFn != nil {
				w.opts.ErrorFn(pm.StartLine, pm.Raw, err)
			} else {
				fmt.Fprintf(os.Stderr, "Error: line %d: %v\n", pm.StartLine, err)
			}
			sess.Stats.Errors++
		}
	}
	return nil
}

// WouldImport reports how many messages a dry run would have inserted.
func (w *BatchWriter) WouldImport() int64 {
	return w.wouldImport
}

func (w *BatchWriter) writeOne(ctx context.Context, sess *Session, pm *ParsedMessage) error {
	msg := &store.Message{
		MessageType: pm.Type,
		Direction:   pm.Direction,
		Timestamp:   pm.Timestamp,
		Content:     pm.Content,
		Attachment:  pm.Attachment,
		Location:    pm.Location,
		RawLine:     pm.Raw,
	}

	if pm.SenderNumber != "" {
		id, err := w.resolver.Resolve(ctx, sess, pm.SenderNumber, pm.SenderName)
		if err != nil {
			return fmt.Errorf("resolving sender: %w", err)
		}
		msg.SenderID = &id
	}

	switch {
	case pm.ReceiverNumber != "":
		id, err := w.resolver.Resolve(ctx, sess, pm.ReceiverNumber, pm.ReceiverName)
		if err != nil {
			return fmt.Errorf("resolving receiver: %w", err)
		}
		msg.ReceiverID = &id
	case pm.Direction == store.DirectionTo:
		// Fallback policy: an outgoing record without a receiver number
		// goes to the last resolved contact, when there is one.
		if last := sess.LastContactID(); last != 0 {
			id := last
			msg.ReceiverID = &id
		}
	}

	if !w.opts.NoDuplicateCheck {
		exists, err := w.store.MessageExists(ctx, msg.MessageType, msg.Direction, msg.Timestamp, msg.Content)
		if err != nil {
			return fmt.Errorf("checking duplicate: %w", err)
		}
		if exists {
			sess.Stats.DuplicatesSkipped++
			return nil
		}
	}

	if _, err := w.store.AddMessage(ctx, msg); err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}

	sess.Stats.MessagesCreated++
	if w.opts.ProgressFn != nil {
		w.opts.ProgressFn(msg)
	}
	return nil
}

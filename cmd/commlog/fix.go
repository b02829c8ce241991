package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/hallamw/commlog/internal/correct"
	"github.com/hallamw/commlog/internal/mcp"
	"github.com/hallamw/commlog/internal/store"
)

func runFix(args []string) error {
	cliDBPath, rest, err := splitDBFlag(args)
	if err != nil {
		return err
	}
	if len(rest) != 1 {
		return fmt.Errorf("usage: commlog fix receivers|self-replies|contacts")
	}
	pass := rest[0]

	s, err := openStore(cliDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	var res *correct.Result

	switch pass {
	case "receivers":
		res, err = correct.BackfillReceivers(ctx, s)
	case "self-replies":
		res, err = correct.ReclassifySelfReplies(ctx, s, nil)
	case "contacts":
		res, err = correct.MergeDuplicateContacts(ctx, s)
	default:
		return fmt.Errorf("unknown pass %q (want receivers, self-replies, or contacts)", pass)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Pass %s: %s\n", pass, res)
	return nil
}

func runMerge(args []string) error {
	cliDBPath, rest, err := splitDBFlag(args)
	if err != nil {
		return err
	}
	if len(rest) != 2 {
		return fmt.Errorf("usage: commlog merge <keeper-id> <other-id>")
	}
	keeperID, err := strconv.ParseInt(rest[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid keeper id %q", rest[0])
	}
	otherID, err := strconv.ParseInt(rest[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid contact id %q", rest[1])
	}

	s, err := openStore(cliDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.MergeContacts(ctx, keeperID, otherID); err != nil {
		return err
	}

	keeper, err := s.GetContact(ctx, keeperID)
	if err != nil {
		return err
	}
	fmt.Printf("Merged contact %d into %d (%s)\n", otherID, keeperID, keeper.PhoneNumber)
	return nil
}

func runCorrect(args []string) error {
	cliDBPath, rest, err := splitDBFlag(args)
	if err != nil {
		return err
	}

	var messageID int64
	update := store.AttributionUpdate{}
	haveID := false

	for _, arg := range rest {
		switch {
		case strings.HasPrefix(arg, "--direction="):
			d := store.Direction(strings.ToUpper(strings.TrimPrefix(arg, "--direction=")))
			switch d {
			case store.DirectionFrom, store.DirectionTo, store.DirectionUnknown:
				update.Direction = &d
			default:
				return fmt.Errorf("invalid direction %q (want FROM, TO, or UNKNOWN)", d)
			}
		case strings.HasPrefix(arg, "--sender="):
			v := strings.TrimPrefix(arg, "--sender=")
			if v == "none" {
				update.ClearSender = true
				break
			}
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid sender id %q", v)
			}
			update.SenderID = &id
		case strings.HasPrefix(arg, "--receiver="):
			v := strings.TrimPrefix(arg, "--receiver=")
			if v == "none" {
				update.ClearReceiver = true
				break
			}
			id, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid receiver id %q", v)
			}
			update.ReceiverID = &id
		case strings.HasPrefix(arg, "-"):
			return fmt.Errorf("unknown flag: %s", arg)
		default:
			if haveID {
				return fmt.Errorf("unexpected argument: %s", arg)
			}
			messageID, err = strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return fmt.Errorf("invalid message id %q", arg)
			}
			haveID = true
		}
	}

	if !haveID {
		return fmt.Errorf("usage: commlog correct <message-id> [--direction=FROM|TO|UNKNOWN] [--sender=ID|none] [--receiver=ID|none]")
	}

	s, err := openStore(cliDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := context.Background()
	if err := s.UpdateMessageAttribution(ctx, messageID, update); err != nil {
		return err
	}

	m, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	fmt.Println("Corrected:")
	printMessage(m, "  ")
	return nil
}

func runMCP(args []string) error {
	cliDBPath, rest, err := splitDBFlag(args)
	if err != nil {
		return err
	}
	if len(rest) != 0 {
		return fmt.Errorf("unexpected argument: %s", rest[0])
	}

	s, err := openStore(cliDBPath)
	if err != nil {
		return err
	}
	defer s.Close()

	srv := mcp.NewServer(mcp.ServerConfig{Store: s, Version: version})
	return mcp.ServeStdio(srv)
}

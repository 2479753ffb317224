package program

import (
	"errors"
	"sort"

	"dappsuite/ledger"
	"dappsuite/sdk"
)

// -----------------------------------------------------------------------------
// Chat
// -----------------------------------------------------------------------------
//
// A thread is the unordered pair of its two participants, so both sides
// derive the same slot. Messages are append-only: keyed by (thread, sender,
// timestamp), never updated, never closed. A message record's authority is
// the thread address, which lets one owner scan return a full conversation.

const (
	threadTag  sdk.Tag = "thread"
	messageTag sdk.Tag = "message"

	// MaxMessageLength bounds a single chat message.
	MaxMessageLength = 512
)

// Thread is one two-party conversation.
type Thread struct {
	ParticipantA sdk.Address `json:"participant_a"`
	ParticipantB sdk.Address `json:"participant_b"`
	MessageCount uint64      `json:"message_count"`
	CreatedAt    int64       `json:"created_at"`
}

// Message is one immutable chat entry.
type Message struct {
	Sender    sdk.Address `json:"sender"`
	Thread    sdk.Address `json:"thread"`
	Content   string      `json:"content"`
	Timestamp int64       `json:"timestamp"`
}

// sortPair orders two identities so both participants derive one thread.
func sortPair(a, b sdk.Address) (sdk.Address, sdk.Address) {
	pair := []sdk.Address{a, b}
	sort.Slice(pair, func(i, j int) bool { return pair[i].Less(pair[j]) })
	return pair[0], pair[1]
}

// ThreadAddress derives the shared slot for an unordered participant pair.
func ThreadAddress(a, b sdk.Address) sdk.Address {
	lo, hi := sortPair(a, b)
	return sdk.Derive(threadTag, sdk.SeedAddress(lo), sdk.SeedAddress(hi))
}

// MessageAddress derives the slot for one message in a thread.
func MessageAddress(thread, sender sdk.Address, timestamp int64) sdk.Address {
	return sdk.Derive(messageTag, sdk.SeedAddress(thread), sdk.SeedAddress(sender), sdk.SeedI64(timestamp))
}

// SendMessageArgs carries one outgoing message.
type SendMessageArgs struct {
	To      sdk.Address `json:"to"`
	Content string      `json:"content"`
}

// SendMessage appends a message to the signer's thread with To, creating the
// thread on first contact. A sender cannot land two messages on the same
// timestamp in one thread.
func (r *Runtime) SendMessage(ctx Context, args SendMessageArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if args.Content == "" {
		return Receipt{}, ErrMessageEmpty
	}
	if len(args.Content) > MaxMessageLength {
		return Receipt{}, ErrMessageTooLong
	}

	threadAddr := ThreadAddress(ctx.Signer, args.To)
	var thread Thread
	threadAcct, err := r.loadRecord(threadAddr, &thread)
	firstContact := false
	if notFound(err) {
		firstContact = true
		lo, hi := sortPair(ctx.Signer, args.To)
		thread = Thread{ParticipantA: lo, ParticipantB: hi, CreatedAt: ctx.Now}
	} else if err != nil {
		return Receipt{}, err
	}

	msg := &Message{
		Sender:    ctx.Signer,
		Thread:    threadAddr,
		Content:   args.Content,
		Timestamp: ctx.Now,
	}
	msgAddr := MessageAddress(threadAddr, ctx.Signer, ctx.Now)

	// both bonds are checked up front so a failed first contact never
	// leaves an empty thread behind
	required := recordBond(msg)
	if firstContact {
		required += recordBond(&thread)
	}
	bal, err := r.store.Balance(ctx.Signer)
	if err != nil {
		return Receipt{}, err
	}
	if bal < required {
		return Receipt{}, ledger.ErrInsufficientFunds
	}

	if firstContact {
		threadAcct, err = r.createRecord(ctx, threadTag, threadAddr, ctx.Signer, &thread)
		if err != nil {
			return Receipt{}, err
		}
	}
	// authority is the thread, so ListMessages is a single owner scan
	if _, err := r.createRecord(ctx, messageTag, msgAddr, threadAddr, msg); err != nil {
		if errors.Is(err, ledger.ErrAccountExists) {
			return Receipt{}, ErrMessageTimestampTaken
		}
		return Receipt{}, err
	}
	thread.MessageCount++
	if err := r.saveRecord(ctx, threadAcct, &thread); err != nil {
		return Receipt{}, err
	}
	r.emit("msg", "thread", threadAddr.String(), "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: msgAddr}, nil
}

// GetThread fetches the conversation between two identities, in either order.
func (r *Runtime) GetThread(a, b sdk.Address) (*Thread, error) {
	var thread Thread
	if _, err := r.loadRecord(ThreadAddress(a, b), &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// ListMessages returns a thread's messages ordered by timestamp, then sender.
func (r *Runtime) ListMessages(a, b sdk.Address) ([]*Message, error) {
	threadAddr := ThreadAddress(a, b)
	if _, err := r.store.Read(threadAddr); err != nil {
		return nil, err
	}
	accts, err := r.store.OwnerScan(messageTag, threadAddr)
	if err != nil {
		return nil, err
	}
	msgs, err := decodeAll[Message](accts)
	if err != nil {
		return nil, err
	}
	sort.Slice(msgs, func(i, j int) bool {
		if msgs[i].Timestamp != msgs[j].Timestamp {
			return msgs[i].Timestamp < msgs[j].Timestamp
		}
		return msgs[i].Sender.Less(msgs[j].Sender)
	})
	return msgs, nil
}

package program

import (
	"errors"

	"dappsuite/ledger"
	"dappsuite/sdk"
)

// -----------------------------------------------------------------------------
// Voting
// -----------------------------------------------------------------------------
//
// Two global singletons gate the whole module: the poll counter and the
// candidate registrations counter. Both must be initialized exactly once
// before any poll operation. Voter records are pure guards: their existence
// is what blocks a second vote, so they are never closed.

const (
	pollCounterTag   sdk.Tag = "counter"
	registrationsTag sdk.Tag = "registerations"
	pollTag          sdk.Tag = "poll"
	candidateTag     sdk.Tag = "candidate"
	voterTag         sdk.Tag = "voter"

	// MaxPollDescriptionLength bounds poll descriptions.
	MaxPollDescriptionLength = 280
	// MaxCandidateNameLength bounds candidate names.
	MaxCandidateNameLength = 64
)

// Counter hands out sequential poll ids.
type Counter struct {
	Count uint64 `json:"count"`
}

// Registerations hands out sequential candidate ids across all polls. The
// spelling ships as-is on the wire.
type Registerations struct {
	Count uint64 `json:"count"`
}

// Poll is one ballot window. Active iff Start <= now < End.
type Poll struct {
	ID          uint64 `json:"id"`
	Description string `json:"description"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
	Candidates  uint64 `json:"candidates"`
}

// Candidate is one entry on a poll's ballot, keyed by (poll id, cid).
type Candidate struct {
	CID           uint64 `json:"cid"`
	PollID        uint64 `json:"poll_id"`
	Name          string `json:"name"`
	Votes         uint64 `json:"votes"`
	HasRegistered bool   `json:"has_registered"`
}

// Voter marks that an identity voted in a poll. Creation of this record is
// the double-vote guard.
type Voter struct {
	CID      uint64 `json:"cid"`
	PollID   uint64 `json:"poll_id"`
	HasVoted bool   `json:"has_voted"`
}

// PollCounterAddress derives the poll counter singleton slot.
func PollCounterAddress() sdk.Address {
	return sdk.Derive(pollCounterTag)
}

// RegistrationsAddress derives the registrations singleton slot.
func RegistrationsAddress() sdk.Address {
	return sdk.Derive(registrationsTag)
}

// PollAddress derives the slot for a sequential poll id.
func PollAddress(id uint64) sdk.Address {
	return sdk.Derive(pollTag, sdk.SeedU64(id))
}

// CandidateAddress derives the slot for (poll id, candidate id).
func CandidateAddress(pollID, cid uint64) sdk.Address {
	return sdk.Derive(candidateTag, sdk.SeedU64(pollID), sdk.SeedU64(cid))
}

// VoterAddress derives the guard slot for (poll id, voter identity).
func VoterAddress(pollID uint64, voter sdk.Address) sdk.Address {
	return sdk.Derive(voterTag, sdk.SeedU64(pollID), sdk.SeedAddress(voter))
}

// InitVoting creates both singletons exactly once.
func (r *Runtime) InitVoting(ctx Context) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	counterAddr := PollCounterAddress()
	_, err := r.createRecord(ctx, pollCounterTag, counterAddr, ctx.Signer, &Counter{})
	if errors.Is(err, ledger.ErrAccountExists) {
		return Receipt{}, ErrAlreadyInitialized
	}
	if err != nil {
		return Receipt{}, err
	}
	if _, err := r.createRecord(ctx, registrationsTag, RegistrationsAddress(), ctx.Signer, &Registerations{}); err != nil {
		if errors.Is(err, ledger.ErrAccountExists) {
			return Receipt{}, ErrAlreadyInitialized
		}
		return Receipt{}, err
	}
	r.emit("vi", "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: counterAddr}, nil
}

// loadVotingCounters fetches both singletons, mapping a miss to
// NotInitialized so callers see one stable precondition failure.
func (r *Runtime) loadVotingCounters() (*Counter, *ledger.Account, *Registerations, *ledger.Account, error) {
	var counter Counter
	counterAcct, err := r.loadRecord(PollCounterAddress(), &counter)
	if err != nil {
		if notFound(err) {
			return nil, nil, nil, nil, ErrNotInitialized
		}
		return nil, nil, nil, nil, err
	}
	var regs Registerations
	regsAcct, err := r.loadRecord(RegistrationsAddress(), &regs)
	if err != nil {
		if notFound(err) {
			return nil, nil, nil, nil, ErrNotInitialized
		}
		return nil, nil, nil, nil, err
	}
	return &counter, counterAcct, &regs, regsAcct, nil
}

// CreatePollArgs carries the ballot window payload.
type CreatePollArgs struct {
	Description string `json:"description"`
	Start       int64  `json:"start"`
	End         int64  `json:"end"`
}

// CreatePoll draws the next poll id and creates the poll.
func (r *Runtime) CreatePoll(ctx Context, args CreatePollArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if args.End <= args.Start {
		return Receipt{}, ErrInvalidDates
	}
	if len(args.Description) > MaxPollDescriptionLength {
		return Receipt{}, ErrPollDescriptionTooLong
	}
	counter, counterAcct, _, _, err := r.loadVotingCounters()
	if err != nil {
		return Receipt{}, err
	}
	counter.Count++

	poll := &Poll{
		ID:          counter.Count,
		Description: args.Description,
		Start:       args.Start,
		End:         args.End,
	}
	addr := PollAddress(poll.ID)
	if _, err := r.createRecord(ctx, pollTag, addr, ctx.Signer, poll); err != nil {
		return Receipt{}, err
	}
	if err := r.saveRecord(ctx, counterAcct, counter); err != nil {
		return Receipt{}, err
	}
	r.emit("plc", "id", poll.ID, "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// RegisterCandidateArgs puts a name on a poll's ballot.
type RegisterCandidateArgs struct {
	PollID uint64 `json:"poll_id"`
	Name   string `json:"name"`
}

// RegisterCandidate registers a candidate for a poll. Registration stays
// open until the poll ends; the same name cannot register twice per poll.
func (r *Runtime) RegisterCandidate(ctx Context, args RegisterCandidateArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if args.Name == "" {
		return Receipt{}, ErrNameEmpty
	}
	if len(args.Name) > MaxCandidateNameLength {
		return Receipt{}, ErrNameTooLong
	}
	_, _, regs, regsAcct, err := r.loadVotingCounters()
	if err != nil {
		return Receipt{}, err
	}
	pollAddr := PollAddress(args.PollID)
	var poll Poll
	pollAcct, err := r.loadRecord(pollAddr, &poll)
	if err != nil {
		if notFound(err) {
			return Receipt{}, ErrPollDoesNotExist
		}
		return Receipt{}, err
	}
	if ctx.Now >= poll.End {
		return Receipt{}, ErrPollNotActive
	}
	existing, err := r.ListCandidates(args.PollID)
	if err != nil {
		return Receipt{}, err
	}
	for _, cand := range existing {
		if cand.Name == args.Name {
			return Receipt{}, ErrCandidateAlreadyRegistered
		}
	}

	regs.Count++
	candidate := &Candidate{
		CID:           regs.Count,
		PollID:        args.PollID,
		Name:          args.Name,
		HasRegistered: true,
	}
	addr := CandidateAddress(args.PollID, candidate.CID)
	if _, err := r.createRecord(ctx, candidateTag, addr, ctx.Signer, candidate); err != nil {
		return Receipt{}, err
	}
	poll.Candidates++
	if err := r.saveRecord(ctx, pollAcct, &poll); err != nil {
		return Receipt{}, err
	}
	if err := r.saveRecord(ctx, regsAcct, regs); err != nil {
		return Receipt{}, err
	}
	r.emit("cr", "poll", args.PollID, "cid", candidate.CID, "name", args.Name)
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// VoteArgs casts a ballot for one candidate in one poll.
type VoteArgs struct {
	PollID uint64 `json:"poll_id"`
	CID    uint64 `json:"cid"`
}

// Vote records the signer's ballot. The voter guard record is created first;
// its prior existence is exactly the "already voted" condition.
func (r *Runtime) Vote(ctx Context, args VoteArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if _, _, _, _, err := r.loadVotingCounters(); err != nil {
		return Receipt{}, err
	}
	var poll Poll
	if _, err := r.loadRecord(PollAddress(args.PollID), &poll); err != nil {
		if notFound(err) {
			return Receipt{}, ErrPollDoesNotExist
		}
		return Receipt{}, err
	}
	if ctx.Now < poll.Start || ctx.Now >= poll.End {
		return Receipt{}, ErrPollNotActive
	}
	candAddr := CandidateAddress(args.PollID, args.CID)
	var candidate Candidate
	candAcct, err := r.loadRecord(candAddr, &candidate)
	if err != nil {
		if notFound(err) {
			return Receipt{}, ErrCandidateNotRegistered
		}
		return Receipt{}, err
	}
	if candidate.PollID != args.PollID || !candidate.HasRegistered {
		return Receipt{}, ErrCandidateNotRegistered
	}

	if candidate.Votes+1 == 0 {
		// increment would wrap; counters must only ever grow
		return Receipt{}, ErrPollCounterUnderflow
	}

	voter := &Voter{CID: args.CID, PollID: args.PollID, HasVoted: true}
	voterAddr := VoterAddress(args.PollID, ctx.Signer)
	if _, err := r.createRecord(ctx, voterTag, voterAddr, ctx.Signer, voter); err != nil {
		if errors.Is(err, ledger.ErrAccountExists) {
			return Receipt{}, ErrVoterAlreadyVoted
		}
		return Receipt{}, err
	}
	candidate.Votes++
	if err := r.saveRecord(ctx, candAcct, &candidate); err != nil {
		return Receipt{}, err
	}
	r.emit("vt", "poll", args.PollID, "cid", args.CID, "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: voterAddr}, nil
}

// GetPoll fetches one poll by id.
func (r *Runtime) GetPoll(id uint64) (*Poll, error) {
	var poll Poll
	if _, err := r.loadRecord(PollAddress(id), &poll); err != nil {
		if notFound(err) {
			return nil, ErrPollDoesNotExist
		}
		return nil, err
	}
	return &poll, nil
}

// ListPolls walks poll id 1..count.
func (r *Runtime) ListPolls() ([]*Poll, error) {
	var counter Counter
	if _, err := r.loadRecord(PollCounterAddress(), &counter); err != nil {
		if notFound(err) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	out := make([]*Poll, 0, counter.Count)
	for id := uint64(1); id <= counter.Count; id++ {
		poll, err := r.GetPoll(id)
		if err != nil {
			return nil, err
		}
		out = append(out, poll)
	}
	return out, nil
}

// ListCandidates enumerates a poll's ballot. Candidate ids are global, so
// the walk filters by poll.
func (r *Runtime) ListCandidates(pollID uint64) ([]*Candidate, error) {
	var regs Registerations
	if _, err := r.loadRecord(RegistrationsAddress(), &regs); err != nil {
		if notFound(err) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	var out []*Candidate
	for cid := uint64(1); cid <= regs.Count; cid++ {
		var candidate Candidate
		_, err := r.loadRecord(CandidateAddress(pollID, cid), &candidate)
		if notFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, &candidate)
	}
	return out, nil
}

// HasVoted reports whether the identity already voted in the poll.
func (r *Runtime) HasVoted(pollID uint64, voter sdk.Address) (bool, error) {
	_, err := r.store.Read(VoterAddress(pollID, voter))
	if notFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

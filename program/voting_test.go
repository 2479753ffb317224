package program

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dappsuite/sdk"
)

// votingFixture initializes the module and creates one poll running in
// [100, 1000) with two candidates.
func votingFixture(t *testing.T) (*Runtime, sdk.Address) {
	t.Helper()
	r := testRuntime(t)
	admin := newActor(t, r)
	_, err := r.InitVoting(ctxAt(admin, 1))
	require.NoError(t, err)
	_, err = r.CreatePoll(ctxAt(admin, 10), CreatePollArgs{Description: "best snack", Start: 100, End: 1000})
	require.NoError(t, err)
	_, err = r.RegisterCandidate(ctxAt(admin, 20), RegisterCandidateArgs{PollID: 1, Name: "pretzels"})
	require.NoError(t, err)
	_, err = r.RegisterCandidate(ctxAt(admin, 30), RegisterCandidateArgs{PollID: 1, Name: "olives"})
	require.NoError(t, err)
	return r, admin
}

func TestInitVotingOnce(t *testing.T) {
	r := testRuntime(t)
	admin := newActor(t, r)

	_, err := r.InitVoting(ctxAt(admin, 1))
	require.NoError(t, err)
	_, err = r.InitVoting(ctxAt(admin, 2))
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestVotingRequiresInit(t *testing.T) {
	r := testRuntime(t)
	admin := newActor(t, r)

	_, err := r.CreatePoll(ctxAt(admin, 1), CreatePollArgs{Description: "x", Start: 1, End: 2})
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = r.RegisterCandidate(ctxAt(admin, 1), RegisterCandidateArgs{PollID: 1, Name: "a"})
	assert.ErrorIs(t, err, ErrNotInitialized)
	_, err = r.Vote(ctxAt(admin, 1), VoteArgs{PollID: 1, CID: 1})
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestCreatePollValidation(t *testing.T) {
	r := testRuntime(t)
	admin := newActor(t, r)
	_, err := r.InitVoting(ctxAt(admin, 1))
	require.NoError(t, err)

	_, err = r.CreatePoll(ctxAt(admin, 10), CreatePollArgs{Description: "x", Start: 100, End: 100})
	assert.ErrorIs(t, err, ErrInvalidDates)
	_, err = r.CreatePoll(ctxAt(admin, 10), CreatePollArgs{Description: "x", Start: 100, End: 50})
	assert.ErrorIs(t, err, ErrInvalidDates)

	long := strings.Repeat("d", MaxPollDescriptionLength+1)
	_, err = r.CreatePoll(ctxAt(admin, 10), CreatePollArgs{Description: long, Start: 100, End: 200})
	assert.ErrorIs(t, err, ErrPollDescriptionTooLong)
}

func TestRegisterCandidateRules(t *testing.T) {
	r, admin := votingFixture(t)

	_, err := r.RegisterCandidate(ctxAt(admin, 40), RegisterCandidateArgs{PollID: 1, Name: ""})
	assert.ErrorIs(t, err, ErrNameEmpty)
	_, err = r.RegisterCandidate(ctxAt(admin, 40), RegisterCandidateArgs{PollID: 1, Name: strings.Repeat("n", MaxCandidateNameLength+1)})
	assert.ErrorIs(t, err, ErrNameTooLong)

	_, err = r.RegisterCandidate(ctxAt(admin, 40), RegisterCandidateArgs{PollID: 7, Name: "nobody"})
	assert.ErrorIs(t, err, ErrPollDoesNotExist)

	// same name cannot run twice in one poll
	_, err = r.RegisterCandidate(ctxAt(admin, 40), RegisterCandidateArgs{PollID: 1, Name: "pretzels"})
	assert.ErrorIs(t, err, ErrCandidateAlreadyRegistered)

	// registration stays open while the poll runs, but not after it ends
	_, err = r.RegisterCandidate(ctxAt(admin, 500), RegisterCandidateArgs{PollID: 1, Name: "late entrant"})
	require.NoError(t, err)
	_, err = r.RegisterCandidate(ctxAt(admin, 1000), RegisterCandidateArgs{PollID: 1, Name: "too late"})
	assert.ErrorIs(t, err, ErrPollNotActive)

	poll, err := r.GetPoll(1)
	require.NoError(t, err)
	assert.EqualValues(t, 3, poll.Candidates)
}

func TestVoteTally(t *testing.T) {
	r, _ := votingFixture(t)
	v1 := newActor(t, r)
	v2 := newActor(t, r)
	v3 := newActor(t, r)

	_, err := r.Vote(ctxAt(v1, 200), VoteArgs{PollID: 1, CID: 1})
	require.NoError(t, err)
	_, err = r.Vote(ctxAt(v2, 300), VoteArgs{PollID: 1, CID: 1})
	require.NoError(t, err)
	_, err = r.Vote(ctxAt(v3, 400), VoteArgs{PollID: 1, CID: 2})
	require.NoError(t, err)

	candidates, err := r.ListCandidates(1)
	require.NoError(t, err)
	require.Len(t, candidates, 2)
	tally := map[string]uint64{}
	for _, c := range candidates {
		tally[c.Name] = c.Votes
	}
	assert.EqualValues(t, 2, tally["pretzels"])
	assert.EqualValues(t, 1, tally["olives"])
}

func TestDoubleVoteRejected(t *testing.T) {
	r, _ := votingFixture(t)
	voter := newActor(t, r)

	_, err := r.Vote(ctxAt(voter, 200), VoteArgs{PollID: 1, CID: 1})
	require.NoError(t, err)

	// neither the same candidate nor a different one
	_, err = r.Vote(ctxAt(voter, 300), VoteArgs{PollID: 1, CID: 1})
	assert.ErrorIs(t, err, ErrVoterAlreadyVoted)
	_, err = r.Vote(ctxAt(voter, 300), VoteArgs{PollID: 1, CID: 2})
	assert.ErrorIs(t, err, ErrVoterAlreadyVoted)

	candidates, err := r.ListCandidates(1)
	require.NoError(t, err)
	var total uint64
	for _, c := range candidates {
		total += c.Votes
	}
	assert.EqualValues(t, 1, total)

	voted, err := r.HasVoted(1, voter)
	require.NoError(t, err)
	assert.True(t, voted)
}

func TestVoteWindow(t *testing.T) {
	r, _ := votingFixture(t)
	voter := newActor(t, r)

	_, err := r.Vote(ctxAt(voter, 50), VoteArgs{PollID: 1, CID: 1})
	assert.ErrorIs(t, err, ErrPollNotActive)
	_, err = r.Vote(ctxAt(voter, 1000), VoteArgs{PollID: 1, CID: 1})
	assert.ErrorIs(t, err, ErrPollNotActive)
	_, err = r.Vote(ctxAt(voter, 999), VoteArgs{PollID: 1, CID: 1})
	require.NoError(t, err)
}

func TestVoteUnknownCandidate(t *testing.T) {
	r, admin := votingFixture(t)
	voter := newActor(t, r)

	_, err := r.Vote(ctxAt(voter, 200), VoteArgs{PollID: 1, CID: 42})
	assert.ErrorIs(t, err, ErrCandidateNotRegistered)

	// a candidate of another poll does not count either
	_, err = r.CreatePoll(ctxAt(admin, 200), CreatePollArgs{Description: "other", Start: 100, End: 1000})
	require.NoError(t, err)
	_, err = r.RegisterCandidate(ctxAt(admin, 210), RegisterCandidateArgs{PollID: 2, Name: "stranger"})
	require.NoError(t, err)

	_, err = r.Vote(ctxAt(voter, 300), VoteArgs{PollID: 1, CID: 3})
	assert.ErrorIs(t, err, ErrCandidateNotRegistered)
}

func TestVoteSamePersonAcrossPolls(t *testing.T) {
	r, admin := votingFixture(t)
	voter := newActor(t, r)

	_, err := r.CreatePoll(ctxAt(admin, 50), CreatePollArgs{Description: "second", Start: 100, End: 1000})
	require.NoError(t, err)
	_, err = r.RegisterCandidate(ctxAt(admin, 60), RegisterCandidateArgs{PollID: 2, Name: "solo"})
	require.NoError(t, err)

	_, err = r.Vote(ctxAt(voter, 200), VoteArgs{PollID: 1, CID: 1})
	require.NoError(t, err)
	// one ballot per poll, not one per lifetime
	_, err = r.Vote(ctxAt(voter, 300), VoteArgs{PollID: 2, CID: 3})
	require.NoError(t, err)
}

func TestListPolls(t *testing.T) {
	r, admin := votingFixture(t)

	_, err := r.CreatePoll(ctxAt(admin, 50), CreatePollArgs{Description: "second", Start: 200, End: 2000})
	require.NoError(t, err)

	polls, err := r.ListPolls()
	require.NoError(t, err)
	require.Len(t, polls, 2)
	assert.EqualValues(t, 1, polls[0].ID)
	assert.EqualValues(t, 2, polls[1].ID)
}

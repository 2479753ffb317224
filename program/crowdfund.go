package program

import (
	"errors"

	"dappsuite/ledger"
	"dappsuite/sdk"
)

// -----------------------------------------------------------------------------
// Crowdfunding
// -----------------------------------------------------------------------------
//
// Campaigns are keyed by a sequential cid drawn from a global counter
// singleton; donations and withdrawals are append-only records that are never
// mutated or closed after creation.

const (
	campaignCounterTag sdk.Tag = "campaign_counter"
	campaignTag        sdk.Tag = "campaign"
	donationTag        sdk.Tag = "donation"
	withdrawalTag      sdk.Tag = "withdrawal"
	donorSeqTag        sdk.Tag = "donor_seq"

	// MaxCampaignTitleLength bounds campaign titles.
	MaxCampaignTitleLength = 64
	// MaxCampaignDescriptionLength bounds campaign descriptions.
	MaxCampaignDescriptionLength = 2000
)

// CampaignCounter is the global singleton handing out campaign ids.
type CampaignCounter struct {
	Count uint64 `json:"count"`
}

// Campaign is one fundraiser. Active is never stored: it is always computed
// from the deadline and the raised amount (see Active).
type Campaign struct {
	CID          uint64          `json:"cid"`
	Creator      sdk.Address     `json:"creator"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	ImageURL     string          `json:"image_url"`
	Goal         ledger.Lamports `json:"goal"`
	AmountRaised ledger.Lamports `json:"amount_raised"`
	Deadline     int64           `json:"deadline"`
	CreatedAt    int64           `json:"created_at"`
	Donors       uint64          `json:"donors"`
	Withdrawals  uint64          `json:"withdrawals"`
	Balance      ledger.Lamports `json:"balance"`
	Withdrawn    bool            `json:"withdrawn"`
}

// Active reports whether the campaign still accepts donations:
// the deadline has not passed and the goal is not yet reached.
func (c *Campaign) Active(now int64) bool {
	return now < c.Deadline && c.AmountRaised < c.Goal
}

// Donation is the append-only receipt of one contribution, keyed by
// (donor, cid, donor's per-campaign sequence number).
type Donation struct {
	Donor     sdk.Address     `json:"donor"`
	CID       uint64          `json:"cid"`
	Amount    ledger.Lamports `json:"amount"`
	Timestamp int64           `json:"timestamp"`
	Seq       uint64          `json:"seq"`
}

// Withdrawal mirrors Donation for the creator side.
type Withdrawal struct {
	Creator   sdk.Address     `json:"creator"`
	CID       uint64          `json:"cid"`
	Amount    ledger.Lamports `json:"amount"`
	Fee       ledger.Lamports `json:"fee"`
	Timestamp int64           `json:"timestamp"`
}

// donorSeq tracks how many donations one donor made to one campaign, so
// donation addresses stay unique without global coordination.
type donorSeq struct {
	Count uint64 `json:"count"`
}

// CampaignCounterAddress derives the singleton counter slot.
func CampaignCounterAddress() sdk.Address {
	return sdk.Derive(campaignCounterTag)
}

// CampaignAddress derives the slot for a sequential campaign id.
func CampaignAddress(cid uint64) sdk.Address {
	return sdk.Derive(campaignTag, sdk.SeedU64(cid))
}

// DonationAddress derives the slot for one donation receipt.
func DonationAddress(donor sdk.Address, cid, seq uint64) sdk.Address {
	return sdk.Derive(donationTag, sdk.SeedAddress(donor), sdk.SeedU64(cid), sdk.SeedU64(seq))
}

// WithdrawalAddress derives the slot for one withdrawal receipt.
func WithdrawalAddress(creator sdk.Address, cid, n uint64) sdk.Address {
	return sdk.Derive(withdrawalTag, sdk.SeedAddress(creator), sdk.SeedU64(cid), sdk.SeedU64(n))
}

func donorSeqAddress(donor sdk.Address, cid uint64) sdk.Address {
	return sdk.Derive(donorSeqTag, sdk.SeedAddress(donor), sdk.SeedU64(cid))
}

// InitCrowdfund creates the campaign counter singleton exactly once.
func (r *Runtime) InitCrowdfund(ctx Context) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	addr := CampaignCounterAddress()
	_, err := r.createRecord(ctx, campaignCounterTag, addr, ctx.Signer, &CampaignCounter{})
	if errors.Is(err, ledger.ErrAccountExists) {
		return Receipt{}, ErrAlreadyInitialized
	}
	if err != nil {
		return Receipt{}, err
	}
	r.emit("cfi", "addr", addr.String(), "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// CreateCampaignArgs carries the campaign payload. Goal is in lamports,
// Deadline a unix timestamp.
type CreateCampaignArgs struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ImageURL    string          `json:"image_url"`
	Goal        ledger.Lamports `json:"goal"`
	Deadline    int64           `json:"deadline"`
}

// CreateCampaign draws the next cid from the counter and creates the
// campaign account. The read-bump-write of the counter rides on the store's
// version check, so two racing creators can never share a cid.
func (r *Runtime) CreateCampaign(ctx Context, args CreateCampaignArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if args.Goal == 0 {
		return Receipt{}, ErrInvalidGoalAmount
	}
	if args.Deadline <= ctx.Now {
		return Receipt{}, ErrInvalidDates
	}
	if args.Title == "" {
		return Receipt{}, ErrTitleEmpty
	}
	if len(args.Title) > MaxCampaignTitleLength {
		return Receipt{}, ErrTitleTooLong
	}
	if len(args.Description) > MaxCampaignDescriptionLength {
		return Receipt{}, ErrDescriptionTooLong
	}

	var counter CampaignCounter
	counterAcct, err := r.loadRecord(CampaignCounterAddress(), &counter)
	if err != nil {
		if notFound(err) {
			return Receipt{}, ErrNotInitialized
		}
		return Receipt{}, err
	}
	counter.Count++

	campaign := &Campaign{
		CID:         counter.Count,
		Creator:     ctx.Signer,
		Title:       args.Title,
		Description: args.Description,
		ImageURL:    args.ImageURL,
		Goal:        args.Goal,
		Deadline:    args.Deadline,
		CreatedAt:   ctx.Now,
	}
	addr := CampaignAddress(campaign.CID)
	if _, err := r.createRecord(ctx, campaignTag, addr, ctx.Signer, campaign); err != nil {
		return Receipt{}, err
	}
	if err := r.saveRecord(ctx, counterAcct, &counter); err != nil {
		return Receipt{}, err
	}
	r.emit("cc", "cid", campaign.CID, "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// DonateArgs carries a contribution to one campaign.
type DonateArgs struct {
	CID    uint64          `json:"cid"`
	Amount ledger.Lamports `json:"amount"`
}

// Donate moves lamports from the signer's wallet onto the campaign account
// and writes the append-only donation receipt.
func (r *Runtime) Donate(ctx Context, args DonateArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if args.Amount == 0 {
		return Receipt{}, ErrInvalidDonationAmount
	}
	campaignAddr := CampaignAddress(args.CID)
	var campaign Campaign
	campaignAcct, err := r.loadRecord(campaignAddr, &campaign)
	if err != nil {
		if notFound(err) {
			return Receipt{}, ErrCampaignNotFound
		}
		return Receipt{}, err
	}
	if !campaign.Active(ctx.Now) {
		return Receipt{}, ErrInactiveCampaign
	}

	// per-donor sequence, created lazily on first donation
	seqAddr := donorSeqAddress(ctx.Signer, args.CID)
	var seq donorSeq
	seqAcct, err := r.loadRecord(seqAddr, &seq)
	firstDonation := false
	if notFound(err) {
		firstDonation = true
	} else if err != nil {
		return Receipt{}, err
	}
	seq.Count++

	donation := &Donation{
		Donor:     ctx.Signer,
		CID:       args.CID,
		Amount:    args.Amount,
		Timestamp: ctx.Now,
		Seq:       seq.Count,
	}
	donationAddr := DonationAddress(ctx.Signer, args.CID, seq.Count)

	// the donor covers the amount plus the new record bonds; checking up
	// front keeps the whole transition all-or-nothing under the runtime lock
	required := args.Amount + recordBond(donation)
	if firstDonation {
		required += recordBond(&seq)
	}
	bal, err := r.store.Balance(ctx.Signer)
	if err != nil {
		return Receipt{}, err
	}
	if bal < required {
		return Receipt{}, ErrInsufficientFund
	}

	if err := r.store.Debit(ctx.Signer, args.Amount); err != nil {
		return Receipt{}, err
	}
	if _, err := r.createRecord(ctx, donationTag, donationAddr, ctx.Signer, donation); err != nil {
		return Receipt{}, err
	}
	if firstDonation {
		campaign.Donors++
		if _, err := r.createRecord(ctx, donorSeqTag, seqAddr, ctx.Signer, &seq); err != nil {
			return Receipt{}, err
		}
	} else {
		if err := r.saveRecord(ctx, seqAcct, &seq); err != nil {
			return Receipt{}, err
		}
	}
	campaign.AmountRaised += args.Amount
	campaign.Balance += args.Amount
	campaignAcct.Lamports += args.Amount
	if err := r.saveRecord(ctx, campaignAcct, &campaign); err != nil {
		return Receipt{}, err
	}
	r.emit("cd", "cid", args.CID, "amt", uint64(args.Amount), "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: donationAddr}, nil
}

// WithdrawArgs names the campaign to drain.
type WithdrawArgs struct {
	CID uint64 `json:"cid"`
}

// Withdraw pays out a finished, goal-reaching campaign to its creator,
// exactly once. The platform cut (if configured) is taken off the top.
func (r *Runtime) Withdraw(ctx Context, args WithdrawArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	campaignAddr := CampaignAddress(args.CID)
	var campaign Campaign
	campaignAcct, err := r.loadRecord(campaignAddr, &campaign)
	if err != nil {
		if notFound(err) {
			return Receipt{}, ErrCampaignNotFound
		}
		return Receipt{}, err
	}
	if err := authorize(ctx.Signer, campaign.Creator); err != nil {
		return Receipt{}, err
	}
	if campaign.Active(ctx.Now) {
		return Receipt{}, ErrCampaignStillActive
	}
	if campaign.Withdrawn {
		return Receipt{}, ErrCampaignGoalActualized
	}
	if campaign.AmountRaised < campaign.Goal || campaign.Balance == 0 {
		return Receipt{}, ErrInvalidWithdrawalAmount
	}
	amount := campaign.Balance

	fee := ledger.Lamports(0)
	if r.platformBps > 0 {
		fee = amount * ledger.Lamports(r.platformBps) / 10_000
	}
	seq := campaign.Withdrawals + 1
	rec := &Withdrawal{
		Creator:   campaign.Creator,
		CID:       args.CID,
		Amount:    amount,
		Fee:       fee,
		Timestamp: ctx.Now,
	}
	// the receipt bond is paid out of the campaign account, never the
	// creator's wallet, so the creator nets exactly amount minus fee
	bond := recordBond(rec)
	if campaignAcct.Lamports < amount+bond {
		return Receipt{}, ErrInsufficientFund
	}

	// receipt first: if its creation fails the campaign record is untouched
	if err := r.store.Credit(campaign.Creator, bond); err != nil {
		return Receipt{}, err
	}
	recAddr := WithdrawalAddress(campaign.Creator, args.CID, seq)
	if _, err := r.createRecord(ctx, withdrawalTag, recAddr, campaign.Creator, rec); err != nil {
		_ = r.store.Debit(campaign.Creator, bond)
		return Receipt{}, err
	}

	campaignAcct.Lamports -= amount + bond
	campaign.Balance = 0
	campaign.Withdrawals = seq
	campaign.Withdrawn = true
	if err := r.saveRecord(ctx, campaignAcct, &campaign); err != nil {
		return Receipt{}, err
	}
	if fee > 0 {
		if err := r.store.Credit(r.platformAddr, fee); err != nil {
			return Receipt{}, err
		}
	}
	if err := r.store.Credit(campaign.Creator, amount-fee); err != nil {
		return Receipt{}, err
	}
	r.emit("cw", "cid", args.CID, "amt", uint64(amount), "fee", uint64(fee))
	return Receipt{TxID: ctx.TxID, Address: recAddr}, nil
}

// DeleteCampaignArgs names the campaign to remove.
type DeleteCampaignArgs struct {
	CID uint64 `json:"cid"`
}

// DeleteCampaign closes a campaign that never received funds. Campaign ids
// are never recycled, so the slot is retired for good.
func (r *Runtime) DeleteCampaign(ctx Context, args DeleteCampaignArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	campaignAddr := CampaignAddress(args.CID)
	var campaign Campaign
	if _, err := r.loadRecord(campaignAddr, &campaign); err != nil {
		if notFound(err) {
			return Receipt{}, ErrCampaignNotFound
		}
		return Receipt{}, err
	}
	if err := authorize(ctx.Signer, campaign.Creator); err != nil {
		return Receipt{}, err
	}
	if campaign.Donors > 0 {
		return Receipt{}, ErrCampaignHasDonations
	}
	if err := r.store.Close(campaignAddr, campaign.Creator, true); err != nil {
		return Receipt{}, err
	}
	r.emit("cx", "cid", args.CID, "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: campaignAddr}, nil
}

// GetCampaign fetches one campaign by id.
func (r *Runtime) GetCampaign(cid uint64) (*Campaign, error) {
	var campaign Campaign
	if _, err := r.loadRecord(CampaignAddress(cid), &campaign); err != nil {
		if notFound(err) {
			return nil, ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

// ListCampaigns walks cid 1..count, skipping deleted slots.
func (r *Runtime) ListCampaigns() ([]*Campaign, error) {
	var counter CampaignCounter
	if _, err := r.loadRecord(CampaignCounterAddress(), &counter); err != nil {
		if notFound(err) {
			return nil, ErrNotInitialized
		}
		return nil, err
	}
	out := make([]*Campaign, 0, counter.Count)
	for cid := uint64(1); cid <= counter.Count; cid++ {
		campaign, err := r.GetCampaign(cid)
		if errors.Is(err, ErrCampaignNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, campaign)
	}
	return out, nil
}

// ListDonations enumerates a donor's receipts across campaigns.
func (r *Runtime) ListDonations(donor sdk.Address) ([]*Donation, error) {
	accts, err := r.store.OwnerScan(donationTag, donor)
	if err != nil {
		return nil, err
	}
	return decodeAll[Donation](accts)
}

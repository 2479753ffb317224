package program

import (
	"dappsuite/ledger"
	"dappsuite/sdk"
)

// -----------------------------------------------------------------------------
// Notes
// -----------------------------------------------------------------------------

const (
	noteTag sdk.Tag = "note"

	// MaxNoteTitleLength bounds note titles; the title is an addressing seed
	// so it stays short.
	MaxNoteTitleLength = 32
	// MaxNoteContentLength bounds note bodies.
	MaxNoteContentLength = 1000
)

// Note is one personal note, keyed by (author, title).
type Note struct {
	Author     sdk.Address `json:"author"`
	Title      string      `json:"title"`
	Content    string      `json:"content"`
	CreatedAt  int64       `json:"created_at"`
	LastUpdate int64       `json:"last_update"`
}

// NoteAddress derives the storage slot for (author, title). Clients compute
// the same address from the inputs they already hold.
func NoteAddress(author sdk.Address, title string) sdk.Address {
	return sdk.Derive(noteTag, sdk.SeedAddress(author), sdk.SeedString(title))
}

func validNoteInput(title, content string) error {
	if title == "" {
		return ErrNoteEmpty
	}
	if len(title) > MaxNoteTitleLength {
		return ErrNoteTooLong
	}
	if len(content) > MaxNoteContentLength {
		return ErrContentTooLong
	}
	return nil
}

// CreateNoteArgs carries the creation payload.
type CreateNoteArgs struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// CreateNote creates a note owned by the signer. The signer pays the bond.
func (r *Runtime) CreateNote(ctx Context, args CreateNoteArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if err := validNoteInput(args.Title, args.Content); err != nil {
		return Receipt{}, err
	}
	note := &Note{
		Author:     ctx.Signer,
		Title:      args.Title,
		Content:    args.Content,
		CreatedAt:  ctx.Now,
		LastUpdate: ctx.Now,
	}
	addr := NoteAddress(ctx.Signer, args.Title)
	if _, err := r.createRecord(ctx, noteTag, addr, ctx.Signer, note); err != nil {
		return Receipt{}, err
	}
	r.emit("nc", "addr", addr.String(), "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// UpdateNoteArgs replaces the content of an existing note. Author defaults to
// the signer; a mismatching signer fails Unauthorized, not NotFound.
type UpdateNoteArgs struct {
	Author  sdk.Address `json:"author"`
	Title   string      `json:"title"`
	Content string      `json:"content"`
}

// UpdateNote rewrites the content; only the author may do so, and LastUpdate
// never moves backwards.
func (r *Runtime) UpdateNote(ctx Context, args UpdateNoteArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if err := validNoteInput(args.Title, args.Content); err != nil {
		return Receipt{}, err
	}
	author := args.Author
	if author.IsZero() {
		author = ctx.Signer
	}
	addr := NoteAddress(author, args.Title)
	var note Note
	acct, err := r.loadRecord(addr, &note)
	if err != nil {
		return Receipt{}, err
	}
	if err := authorize(ctx.Signer, note.Author); err != nil {
		return Receipt{}, err
	}
	note.Content = args.Content
	if ctx.Now > note.LastUpdate {
		note.LastUpdate = ctx.Now
	}
	if err := r.saveRecord(ctx, acct, &note); err != nil {
		return Receipt{}, err
	}
	r.emit("nu", "addr", addr.String(), "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// DeleteNoteArgs names the note to close.
type DeleteNoteArgs struct {
	Author sdk.Address `json:"author"`
	Title  string      `json:"title"`
}

// DeleteNote closes the note account and refunds the bond to the author.
// The address may be recreated later with the same title.
func (r *Runtime) DeleteNote(ctx Context, args DeleteNoteArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	author := args.Author
	if author.IsZero() {
		author = ctx.Signer
	}
	addr := NoteAddress(author, args.Title)
	var note Note
	if _, err := r.loadRecord(addr, &note); err != nil {
		return Receipt{}, err
	}
	if err := authorize(ctx.Signer, note.Author); err != nil {
		return Receipt{}, err
	}
	if err := r.store.Close(addr, note.Author, false); err != nil {
		return Receipt{}, err
	}
	r.emit("nd", "addr", addr.String(), "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// GetNote fetches one note by its derivation inputs.
func (r *Runtime) GetNote(author sdk.Address, title string) (*Note, error) {
	var note Note
	if _, err := r.loadRecord(NoteAddress(author, title), &note); err != nil {
		return nil, err
	}
	return &note, nil
}

// ListNotes enumerates all notes of one author via the owner scan.
func (r *Runtime) ListNotes(author sdk.Address) ([]*Note, error) {
	accts, err := r.store.OwnerScan(noteTag, author)
	if err != nil {
		return nil, err
	}
	return decodeAll[Note](accts)
}

// decodeAll unmarshals a batch of scanned accounts into records.
func decodeAll[T any](accts []*ledger.Account) ([]*T, error) {
	out := make([]*T, 0, len(accts))
	for _, acct := range accts {
		rec := new(T)
		if err := decodeInto(acct, rec); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

package program

import "dappsuite/sdk"

// -----------------------------------------------------------------------------
// Social: user accounts + posts
// -----------------------------------------------------------------------------

const (
	userTag sdk.Tag = "user"
	postTag sdk.Tag = "post"

	// MaxUserNameLength bounds display names.
	MaxUserNameLength = 64
	// MaxAvatarLength bounds avatar urls.
	MaxAvatarLength = 256
	// MaxPostTitleLength bounds post titles (an addressing seed).
	MaxPostTitleLength = 64
	// MaxPostContentLength bounds post bodies.
	MaxPostContentLength = 4000
)

// UserAccount is the per-identity profile; it must exist before any post.
// LastPostID and PostCount track posting activity for the profile page.
type UserAccount struct {
	Authority  sdk.Address `json:"authority"`
	Name       string      `json:"name"`
	Avatar     string      `json:"avatar"`
	LastPostID uint64      `json:"last_post_id"`
	PostCount  uint64      `json:"post_count"`
}

// Post is one blog entry, keyed by (authority, title). The title never
// changes after creation because it is part of the address.
type Post struct {
	ID        uint64      `json:"id"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Image     string      `json:"image"`
	User      sdk.Address `json:"user"`
	Authority sdk.Address `json:"authority"`
	CreatedAt int64       `json:"created_at"`
}

// UserAddress derives the singleton profile slot for an identity.
func UserAddress(authority sdk.Address) sdk.Address {
	return sdk.Derive(userTag, sdk.SeedAddress(authority))
}

// PostAddress derives the storage slot for (authority, title).
func PostAddress(authority sdk.Address, title string) sdk.Address {
	return sdk.Derive(postTag, sdk.SeedAddress(authority), sdk.SeedString(title))
}

// InitUserArgs carries the profile payload.
type InitUserArgs struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// InitUser creates the signer's profile. One per identity; a second call
// fails with the store's already-exists error.
func (r *Runtime) InitUser(ctx Context, args InitUserArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if args.Name == "" {
		return Receipt{}, ErrNameEmpty
	}
	if len(args.Name) > MaxUserNameLength {
		return Receipt{}, ErrNameTooLong
	}
	if len(args.Avatar) > MaxAvatarLength {
		return Receipt{}, ErrAvatarTooLong
	}
	user := &UserAccount{
		Authority: ctx.Signer,
		Name:      args.Name,
		Avatar:    args.Avatar,
	}
	addr := UserAddress(ctx.Signer)
	if _, err := r.createRecord(ctx, userTag, addr, ctx.Signer, user); err != nil {
		return Receipt{}, err
	}
	r.emit("uc", "addr", addr.String(), "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

func validPostInput(title, content string) error {
	if title == "" {
		return ErrPostEmpty
	}
	if len(title) > MaxPostTitleLength {
		return ErrPostTooLong
	}
	if len(content) > MaxPostContentLength {
		return ErrContentTooLong
	}
	return nil
}

// CreatePostArgs carries the post payload.
type CreatePostArgs struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Image   string `json:"image"`
}

// CreatePost creates a post under the signer's profile, bumping the profile's
// post counters in the same transaction.
func (r *Runtime) CreatePost(ctx Context, args CreatePostArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if err := validPostInput(args.Title, args.Content); err != nil {
		return Receipt{}, err
	}
	userAddr := UserAddress(ctx.Signer)
	var user UserAccount
	userAcct, err := r.loadRecord(userAddr, &user)
	if err != nil {
		if notFound(err) {
			return Receipt{}, ErrUserNotInitialized
		}
		return Receipt{}, err
	}

	user.LastPostID++
	user.PostCount++
	post := &Post{
		ID:        user.LastPostID,
		Title:     args.Title,
		Content:   args.Content,
		Image:     args.Image,
		User:      userAddr,
		Authority: ctx.Signer,
		CreatedAt: ctx.Now,
	}
	addr := PostAddress(ctx.Signer, args.Title)
	if _, err := r.createRecord(ctx, postTag, addr, ctx.Signer, post); err != nil {
		return Receipt{}, err
	}
	if err := r.saveRecord(ctx, userAcct, &user); err != nil {
		return Receipt{}, err
	}
	r.emit("pc", "addr", addr.String(), "id", post.ID, "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// UpdatePostArgs replaces content and image; the title only names the post.
type UpdatePostArgs struct {
	Authority sdk.Address `json:"authority"`
	Title     string      `json:"title"`
	Content   string      `json:"content"`
	Image     string      `json:"image"`
}

// UpdatePost rewrites content/image; only the authority may do so.
func (r *Runtime) UpdatePost(ctx Context, args UpdatePostArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if err := validPostInput(args.Title, args.Content); err != nil {
		return Receipt{}, err
	}
	authority := args.Authority
	if authority.IsZero() {
		authority = ctx.Signer
	}
	addr := PostAddress(authority, args.Title)
	var post Post
	acct, err := r.loadRecord(addr, &post)
	if err != nil {
		return Receipt{}, err
	}
	if err := authorize(ctx.Signer, post.Authority); err != nil {
		return Receipt{}, err
	}
	post.Content = args.Content
	post.Image = args.Image
	if err := r.saveRecord(ctx, acct, &post); err != nil {
		return Receipt{}, err
	}
	r.emit("pu", "addr", addr.String(), "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// DeletePostArgs names the post to close.
type DeletePostArgs struct {
	Authority sdk.Address `json:"authority"`
	Title     string      `json:"title"`
}

// DeletePost closes the post and decrements the profile's post count.
func (r *Runtime) DeletePost(ctx Context, args DeletePostArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	authority := args.Authority
	if authority.IsZero() {
		authority = ctx.Signer
	}
	addr := PostAddress(authority, args.Title)
	var post Post
	if _, err := r.loadRecord(addr, &post); err != nil {
		return Receipt{}, err
	}
	if err := authorize(ctx.Signer, post.Authority); err != nil {
		return Receipt{}, err
	}

	var user UserAccount
	userAcct, err := r.loadRecord(UserAddress(post.Authority), &user)
	if err != nil {
		return Receipt{}, err
	}
	if err := r.store.Close(addr, post.Authority, false); err != nil {
		return Receipt{}, err
	}
	if user.PostCount > 0 {
		user.PostCount--
	}
	if err := r.saveRecord(ctx, userAcct, &user); err != nil {
		return Receipt{}, err
	}
	r.emit("pd", "addr", addr.String(), "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// GetUser fetches the profile for an identity.
func (r *Runtime) GetUser(authority sdk.Address) (*UserAccount, error) {
	var user UserAccount
	if _, err := r.loadRecord(UserAddress(authority), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetPost fetches one post by its derivation inputs.
func (r *Runtime) GetPost(authority sdk.Address, title string) (*Post, error) {
	var post Post
	if _, err := r.loadRecord(PostAddress(authority, title), &post); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPosts enumerates all posts of one authority.
func (r *Runtime) ListPosts(authority sdk.Address) ([]*Post, error) {
	accts, err := r.store.OwnerScan(postTag, authority)
	if err != nil {
		return nil, err
	}
	return decodeAll[Post](accts)
}

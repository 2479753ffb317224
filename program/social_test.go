package program

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dappsuite/ledger"
)

func TestInitUserOnce(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)

	_, err := r.InitUser(ctxAt(alice, 1), InitUserArgs{Name: "alice", Avatar: "https://img/a.png"})
	require.NoError(t, err)

	user, err := r.GetUser(alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Name)
	assert.EqualValues(t, 0, user.PostCount)

	_, err = r.InitUser(ctxAt(alice, 2), InitUserArgs{Name: "alice again"})
	assert.ErrorIs(t, err, ledger.ErrAccountExists)
}

func TestInitUserValidation(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)

	_, err := r.InitUser(ctxAt(alice, 1), InitUserArgs{Name: ""})
	assert.ErrorIs(t, err, ErrNameEmpty)

	_, err = r.InitUser(ctxAt(alice, 1), InitUserArgs{Name: strings.Repeat("n", MaxUserNameLength+1)})
	assert.ErrorIs(t, err, ErrNameTooLong)

	_, err = r.InitUser(ctxAt(alice, 1), InitUserArgs{Name: "ok", Avatar: strings.Repeat("a", MaxAvatarLength+1)})
	assert.ErrorIs(t, err, ErrAvatarTooLong)
}

func TestCreatePostRequiresProfile(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)

	_, err := r.CreatePost(ctxAt(alice, 1), CreatePostArgs{Title: "hello", Content: "world"})
	assert.ErrorIs(t, err, ErrUserNotInitialized)
}

func TestPostCountersTrackLifecycle(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)

	_, err := r.InitUser(ctxAt(alice, 1), InitUserArgs{Name: "alice"})
	require.NoError(t, err)

	_, err = r.CreatePost(ctxAt(alice, 2), CreatePostArgs{Title: "first", Content: "a"})
	require.NoError(t, err)
	_, err = r.CreatePost(ctxAt(alice, 3), CreatePostArgs{Title: "second", Content: "b"})
	require.NoError(t, err)

	user, err := r.GetUser(alice)
	require.NoError(t, err)
	assert.EqualValues(t, 2, user.PostCount)
	assert.EqualValues(t, 2, user.LastPostID)

	post, err := r.GetPost(alice, "second")
	require.NoError(t, err)
	assert.EqualValues(t, 2, post.ID)

	_, err = r.DeletePost(ctxAt(alice, 4), DeletePostArgs{Title: "first"})
	require.NoError(t, err)

	user, err = r.GetUser(alice)
	require.NoError(t, err)
	assert.EqualValues(t, 1, user.PostCount)
	// LastPostID keeps counting up, deletes never free ids
	assert.EqualValues(t, 2, user.LastPostID)

	_, err = r.CreatePost(ctxAt(alice, 5), CreatePostArgs{Title: "third", Content: "c"})
	require.NoError(t, err)
	post, err = r.GetPost(alice, "third")
	require.NoError(t, err)
	assert.EqualValues(t, 3, post.ID)
}

func TestUpdatePostKeepsTitle(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)

	_, err := r.InitUser(ctxAt(alice, 1), InitUserArgs{Name: "alice"})
	require.NoError(t, err)
	_, err = r.CreatePost(ctxAt(alice, 2), CreatePostArgs{Title: "pinned", Content: "v1", Image: "1.png"})
	require.NoError(t, err)

	_, err = r.UpdatePost(ctxAt(alice, 3), UpdatePostArgs{Title: "pinned", Content: "v2", Image: "2.png"})
	require.NoError(t, err)

	post, err := r.GetPost(alice, "pinned")
	require.NoError(t, err)
	assert.Equal(t, "pinned", post.Title)
	assert.Equal(t, "v2", post.Content)
	assert.Equal(t, "2.png", post.Image)
	assert.EqualValues(t, 1, post.ID)
}

func TestPostUnauthorized(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)
	mallory := newActor(t, r)

	_, err := r.InitUser(ctxAt(alice, 1), InitUserArgs{Name: "alice"})
	require.NoError(t, err)
	_, err = r.CreatePost(ctxAt(alice, 2), CreatePostArgs{Title: "mine", Content: "x"})
	require.NoError(t, err)

	_, err = r.UpdatePost(ctxAt(mallory, 3), UpdatePostArgs{Authority: alice, Title: "mine", Content: "stolen"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = r.DeletePost(ctxAt(mallory, 4), DeletePostArgs{Authority: alice, Title: "mine"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestListPostsScopedToAuthority(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)
	bob := newActor(t, r)

	_, err := r.InitUser(ctxAt(alice, 1), InitUserArgs{Name: "alice"})
	require.NoError(t, err)
	_, err = r.InitUser(ctxAt(bob, 1), InitUserArgs{Name: "bob"})
	require.NoError(t, err)

	_, err = r.CreatePost(ctxAt(alice, 2), CreatePostArgs{Title: "a", Content: "x"})
	require.NoError(t, err)
	_, err = r.CreatePost(ctxAt(bob, 2), CreatePostArgs{Title: "b", Content: "y"})
	require.NoError(t, err)

	posts, err := r.ListPosts(alice)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "a", posts[0].Title)
}

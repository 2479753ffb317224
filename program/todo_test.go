package program

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dappsuite/ledger"
)

func TestTaskToggleRoundTrip(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)

	_, err := r.CreateTask(ctxAt(alice, 10), CreateTaskArgs{Title: "ship release"})
	require.NoError(t, err)

	task, err := r.GetTask(alice, "ship release")
	require.NoError(t, err)
	assert.False(t, task.IsCompleted)

	_, err = r.ToggleTask(ctxAt(alice, 20), TaskRef{Title: "ship release"})
	require.NoError(t, err)
	task, err = r.GetTask(alice, "ship release")
	require.NoError(t, err)
	assert.True(t, task.IsCompleted)
	assert.EqualValues(t, 20, task.LastUpdate)

	// toggling again reopens it
	_, err = r.ToggleTask(ctxAt(alice, 30), TaskRef{Title: "ship release"})
	require.NoError(t, err)
	task, err = r.GetTask(alice, "ship release")
	require.NoError(t, err)
	assert.False(t, task.IsCompleted)
}

func TestTaskValidation(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)

	_, err := r.CreateTask(ctxAt(alice, 1), CreateTaskArgs{Title: ""})
	assert.ErrorIs(t, err, ErrTaskEmpty)

	_, err = r.CreateTask(ctxAt(alice, 1), CreateTaskArgs{Title: strings.Repeat("t", MaxTaskLength+1)})
	assert.ErrorIs(t, err, ErrTaskTooLong)
}

func TestTaskUnauthorized(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)
	mallory := newActor(t, r)

	_, err := r.CreateTask(ctxAt(alice, 1), CreateTaskArgs{Title: "laundry"})
	require.NoError(t, err)

	_, err = r.ToggleTask(ctxAt(mallory, 2), TaskRef{Author: alice, Title: "laundry"})
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = r.DeleteTask(ctxAt(mallory, 3), TaskRef{Author: alice, Title: "laundry"})
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestRenameTaskMovesRecord(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)

	_, err := r.CreateTask(ctxAt(alice, 10), CreateTaskArgs{Title: "draft"})
	require.NoError(t, err)
	_, err = r.ToggleTask(ctxAt(alice, 20), TaskRef{Title: "draft"})
	require.NoError(t, err)

	_, err = r.RenameTask(ctxAt(alice, 30), RenameTaskArgs{Title: "draft", NewTitle: "final"})
	require.NoError(t, err)

	task, err := r.GetTask(alice, "final")
	require.NoError(t, err)
	assert.True(t, task.IsCompleted)
	assert.EqualValues(t, 10, task.CreatedAt)
	assert.EqualValues(t, 30, task.LastUpdate)

	_, err = r.GetTask(alice, "draft")
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestRenameTaskCollision(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)

	_, err := r.CreateTask(ctxAt(alice, 1), CreateTaskArgs{Title: "a"})
	require.NoError(t, err)
	_, err = r.CreateTask(ctxAt(alice, 2), CreateTaskArgs{Title: "b"})
	require.NoError(t, err)

	_, err = r.RenameTask(ctxAt(alice, 3), RenameTaskArgs{Title: "a", NewTitle: "b"})
	assert.ErrorIs(t, err, ledger.ErrAccountExists)

	// the original stays put when the target slot is taken
	task, err := r.GetTask(alice, "a")
	require.NoError(t, err)
	assert.Equal(t, "a", task.Title)
}

func TestTaskDeleteThenToggle(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)

	_, err := r.CreateTask(ctxAt(alice, 1), CreateTaskArgs{Title: "tmp"})
	require.NoError(t, err)
	_, err = r.DeleteTask(ctxAt(alice, 2), TaskRef{Title: "tmp"})
	require.NoError(t, err)

	_, err = r.ToggleTask(ctxAt(alice, 3), TaskRef{Title: "tmp"})
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestListTasks(t *testing.T) {
	r := testRuntime(t)
	alice := newActor(t, r)

	for _, title := range []string{"one", "two", "three"} {
		_, err := r.CreateTask(ctxAt(alice, 1), CreateTaskArgs{Title: title})
		require.NoError(t, err)
	}
	tasks, err := r.ListTasks(alice)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)
}

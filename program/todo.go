package program

import "dappsuite/sdk"

// -----------------------------------------------------------------------------
// Tasks
// -----------------------------------------------------------------------------

const (
	todoTag sdk.Tag = "todo"

	// MaxTaskLength bounds task titles, the only text a task carries.
	MaxTaskLength = 100
)

// Task is one todo entry, keyed by (author, title). Completion can flip both
// ways, everything else is fixed at creation.
type Task struct {
	Author      sdk.Address `json:"author"`
	Title       string      `json:"title"`
	IsCompleted bool        `json:"is_completed"`
	CreatedAt   int64       `json:"created_at"`
	LastUpdate  int64       `json:"last_update"`
}

// TaskAddress derives the storage slot for (author, title).
func TaskAddress(author sdk.Address, title string) sdk.Address {
	return sdk.Derive(todoTag, sdk.SeedAddress(author), sdk.SeedString(title))
}

func validTaskTitle(title string) error {
	if title == "" {
		return ErrTaskEmpty
	}
	if len(title) > MaxTaskLength {
		return ErrTaskTooLong
	}
	return nil
}

// CreateTaskArgs carries the creation payload.
type CreateTaskArgs struct {
	Title string `json:"title"`
}

// CreateTask creates an open task owned by the signer.
func (r *Runtime) CreateTask(ctx Context, args CreateTaskArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if err := validTaskTitle(args.Title); err != nil {
		return Receipt{}, err
	}
	task := &Task{
		Author:     ctx.Signer,
		Title:      args.Title,
		CreatedAt:  ctx.Now,
		LastUpdate: ctx.Now,
	}
	addr := TaskAddress(ctx.Signer, args.Title)
	if _, err := r.createRecord(ctx, todoTag, addr, ctx.Signer, task); err != nil {
		return Receipt{}, err
	}
	r.emit("tc", "addr", addr.String(), "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// TaskRef names an existing task. Author defaults to the signer.
type TaskRef struct {
	Author sdk.Address `json:"author"`
	Title  string      `json:"title"`
}

func (ref TaskRef) address(signer sdk.Address) sdk.Address {
	author := ref.Author
	if author.IsZero() {
		author = signer
	}
	return TaskAddress(author, ref.Title)
}

// ToggleTask flips the completion flag; both directions are legal.
func (r *Runtime) ToggleTask(ctx Context, ref TaskRef) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	addr := ref.address(ctx.Signer)
	var task Task
	acct, err := r.loadRecord(addr, &task)
	if err != nil {
		return Receipt{}, err
	}
	if err := authorize(ctx.Signer, task.Author); err != nil {
		return Receipt{}, err
	}
	task.IsCompleted = !task.IsCompleted
	if ctx.Now > task.LastUpdate {
		task.LastUpdate = ctx.Now
	}
	if err := r.saveRecord(ctx, acct, &task); err != nil {
		return Receipt{}, err
	}
	r.emit("tt", "addr", addr.String(), "done", task.IsCompleted)
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// RenameTaskArgs moves a task to a new title.
type RenameTaskArgs struct {
	Author   sdk.Address `json:"author"`
	Title    string      `json:"title"`
	NewTitle string      `json:"new_title"`
}

// RenameTask retitles a task. The title is an addressing seed, so the record
// moves: the old slot closes and a fresh one opens at the new derivation,
// keeping completion state and creation time.
func (r *Runtime) RenameTask(ctx Context, args RenameTaskArgs) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	if err := validTaskTitle(args.NewTitle); err != nil {
		return Receipt{}, err
	}
	oldAddr := TaskRef{Author: args.Author, Title: args.Title}.address(ctx.Signer)
	var task Task
	if _, err := r.loadRecord(oldAddr, &task); err != nil {
		return Receipt{}, err
	}
	if err := authorize(ctx.Signer, task.Author); err != nil {
		return Receipt{}, err
	}
	task.Title = args.NewTitle
	if ctx.Now > task.LastUpdate {
		task.LastUpdate = ctx.Now
	}
	newAddr := TaskAddress(task.Author, args.NewTitle)
	if _, err := r.createRecord(ctx, todoTag, newAddr, task.Author, &task); err != nil {
		return Receipt{}, err
	}
	if err := r.store.Close(oldAddr, task.Author, false); err != nil {
		return Receipt{}, err
	}
	r.emit("tr", "from", oldAddr.String(), "to", newAddr.String())
	return Receipt{TxID: ctx.TxID, Address: newAddr}, nil
}

// DeleteTask closes the task account and refunds the bond to the author.
func (r *Runtime) DeleteTask(ctx Context, ref TaskRef) (Receipt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.begin(&ctx)

	addr := ref.address(ctx.Signer)
	var task Task
	if _, err := r.loadRecord(addr, &task); err != nil {
		return Receipt{}, err
	}
	if err := authorize(ctx.Signer, task.Author); err != nil {
		return Receipt{}, err
	}
	if err := r.store.Close(addr, task.Author, false); err != nil {
		return Receipt{}, err
	}
	r.emit("td", "addr", addr.String(), "by", ctx.Signer.String())
	return Receipt{TxID: ctx.TxID, Address: addr}, nil
}

// GetTask fetches one task by its derivation inputs.
func (r *Runtime) GetTask(author sdk.Address, title string) (*Task, error) {
	var task Task
	if _, err := r.loadRecord(TaskAddress(author, title), &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTasks enumerates all tasks of one author.
func (r *Runtime) ListTasks(author sdk.Address) ([]*Task, error) {
	accts, err := r.store.OwnerScan(todoTag, author)
	if err != nil {
		return nil, err
	}
	return decodeAll[Task](accts)
}

package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/openclaw/mission-control/client"
	"github.com/openclaw/mission-control/store"
)

// ErrNoChange is returned by Controller.Move when the task already sits in
// the target column.
var ErrNoChange = errors.New("task already in target column")

// API is the server surface the controller drives. *client.Client
// implements it.
type API interface {
	Updater
	ListTasks(ctx context.Context, q client.TaskQuery) ([]*store.Task, error)
	ListProjects(ctx context.Context) ([]*store.ProjectSummary, error)
}

// Controller runs whole move cycles against a server.
type Controller struct {
	Board *Board
	API   API
}

// Refresh reloads tasks, and projects in project mode, from the server.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.Board.Mode() == ByProject {
		projects, err := c.API.ListProjects(ctx)
		if err != nil {
			err = fmt.Errorf("list projects: %w", err)
			c.Board.Load(nil, err)
			return err
		}
		c.Board.SetProjects(projects)
	}
	tasks, err := c.API.ListTasks(ctx, client.TaskQuery{})
	c.Board.Load(tasks, err)
	return err
}

// Move drags task id onto target, sends the update and reloads. The
// returned error is the update's failure, if any.
func (c *Controller) Move(ctx context.Context, id int64, target Target) (Outcome, error) {
	if !c.Board.BeginDrag(id) {
		return Outcome{}, fmt.Errorf("task %d: %w", id, store.ErrNotFound)
	}
	c.Board.Hover(target)
	m, ok := c.Board.Drop(&target)
	if !ok {
		return Outcome{}, ErrNoChange
	}
	out := Send(ctx, c.API, m)
	c.Board.Settle(out)
	_ = c.Refresh(ctx)
	return out, out.Err
}

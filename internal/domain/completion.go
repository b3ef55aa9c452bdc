package domain

import "sync"

// Completion is a pending action outcome that resolves exactly once.
// Action providers return it as their handle and resolve it from whatever
// callback their platform API delivers.
type Completion struct {
	once sync.Once
	done chan struct{}
	err  error
}

// NewCompletion creates an unresolved completion.
func NewCompletion() *Completion {
	return &Completion{done: make(chan struct{})}
}

// Succeeded returns a completion that has already succeeded.
func Succeeded() *Completion {
	c := NewCompletion()
	c.Succeed()
	return c
}

// Failed returns a completion that has already failed with err.
func Failed(err error) *Completion {
	c := NewCompletion()
	c.Fail(err)
	return c
}

// Succeed resolves the completion successfully. Later calls are ignored.
func (c *Completion) Succeed() {
	c.resolve(nil)
}

// Fail resolves the completion with err, or ErrActionFailed when err is nil.
// Later calls are ignored.
func (c *Completion) Fail(err error) {
	if err == nil {
		err = ErrActionFailed
	}
	c.resolve(err)
}

func (c *Completion) resolve(err error) {
	c.once.Do(func() {
		c.err = err
		close(c.done)
	})
}

// Done returns a channel that is closed once the completion resolves.
func (c *Completion) Done() <-chan struct{} {
	return c.done
}

// Err returns the failure, or nil on success. Only valid after Done is closed.
func (c *Completion) Err() error {
	select {
	case <-c.done:
		return c.err
	default:
		return nil
	}
}

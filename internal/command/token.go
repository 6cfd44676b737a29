package command

import "sync/atomic"

// Token is the capability a Queue hands to a running WorkFunc.
//
// A Token is valid only while its Command is busy on the Queue that issued
// it. Operations that must run on the worker goroutine (graph mutation and
// graph execution) check the Token and refuse to proceed without a valid one.
// A Token leaked out of its WorkFunc becomes invalid when the WorkFunc
// returns.
type Token struct {
	queue   *Queue
	command *Command
	live    atomic.Bool
}

func newToken(q *Queue, c *Command) *Token {
	t := &Token{queue: q, command: c}
	t.live.Store(true)
	return t
}

func (t *Token) revoke() {
	t.live.Store(false)
}

// Valid reports whether t is currently usable.
func (t *Token) Valid() bool {
	return t != nil && t.live.Load()
}

// IssuedBy reports whether t is valid and was issued by q.
func (t *Token) IssuedBy(q *Queue) bool {
	return t.Valid() && t.queue == q
}

// Command returns the Command the token was issued to.
func (t *Token) Command() *Command {
	if t == nil {
		return nil
	}
	return t.command
}

// Package password shares one credential between all workers of an
// extraction run and makes sure the user is prompted at most once.
package password

import (
	"context"
	"fmt"
	"sync"

	"github.com/meigma/unzip/internal/ziptype"
)

// Prompter asks the user for a password. It is called at most once per
// Coordinator.
type Prompter func(ctx context.Context) ([]byte, error)

type state uint8

const (
	// stateEmpty: no credential yet, a prompt may be issued.
	stateEmpty state = iota
	// statePrompting: one caller is prompting, the others wait on done.
	statePrompting
	// stateCached: credential known and reused for the rest of the run.
	stateCached
	// stateUnavailable: no credential and none can be obtained.
	stateUnavailable
)

// Coordinator is the credential cache for a single run.
// It is safe for concurrent use. The mutex is never held while prompting.
type Coordinator struct {
	mu       sync.Mutex
	state    state
	password []byte
	prompt   Prompter
	done     chan struct{}
}

// New returns a Coordinator. A non-empty password is cached immediately and
// the prompter is never used. A nil prompter means no interactive channel.
func New(password []byte, prompt Prompter) *Coordinator {
	c := &Coordinator{prompt: prompt}
	switch {
	case len(password) > 0:
		c.state = stateCached
		c.password = append([]byte(nil), password...)
	case prompt == nil:
		c.state = stateUnavailable
	default:
		c.state = stateEmpty
	}
	return c
}

// Cached returns the credential if one has already been resolved.
func (c *Coordinator) Cached() ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateCached {
		return nil, false
	}
	return c.password, true
}

// CanPrompt reports whether a later call to Password may still prompt.
func (c *Coordinator) CanPrompt() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateEmpty || c.state == statePrompting
}

// Password returns the run's credential, prompting on first use.
// Concurrent callers during a prompt block until it completes and then share
// its result. If no credential can be obtained, it returns
// ziptype.ErrPasswordRequired; a failed prompt is not retried.
//
// A credential that later fails to decrypt an entry stays cached: a wrong
// password only affects the entries it was tried against.
func (c *Coordinator) Password(ctx context.Context) ([]byte, error) {
	for {
		c.mu.Lock()
		switch c.state {
		case stateCached:
			pw := c.password
			c.mu.Unlock()
			return pw, nil
		case stateUnavailable:
			c.mu.Unlock()
			return nil, ziptype.ErrPasswordRequired
		case statePrompting:
			done := c.done
			c.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		case stateEmpty:
			c.state = statePrompting
			c.done = make(chan struct{})
			c.mu.Unlock()
			return c.runPrompt(ctx)
		}
	}
}

func (c *Coordinator) runPrompt(ctx context.Context) ([]byte, error) {
	pw, err := c.prompt(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	defer close(c.done)
	if err != nil || len(pw) == 0 {
		c.state = stateUnavailable
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ziptype.ErrPasswordRequired, err)
		}
		return nil, ziptype.ErrPasswordRequired
	}
	c.state = stateCached
	c.password = pw
	return pw, nil
}

// Package entryflow drives the two-question chat dialogue that ends in a
// match entry. Each chat session owns at most one Flow; the admission core
// never sees partial input.
package entryflow

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"arena/internal/money"
	"arena/internal/services"
)

type State int

const (
	Idle State = iota
	AwaitingMatch
	AwaitingAmount
	Done
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingMatch:
		return "awaiting_match"
	case AwaitingAmount:
		return "awaiting_amount"
	case Done:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotStarted   = errors.New("no entry in progress")
)

const cancelWord = "cancel"

type Enterer interface {
	Enter(ctx context.Context, req services.EnterRequest) (services.EntryReceipt, error)
}

// Step is what the chat front-end shows after each transition.
type Step struct {
	State   State
	Prompt  string
	MatchID int64
	// Receipt is set only on the transition into Done.
	Receipt *services.EntryReceipt
}

type Flow struct {
	mu        sync.Mutex
	sessionID string
	enterer   Enterer
	state     State
	matchID   int64
}

func NewFlow(sessionID string, enterer Enterer) *Flow {
	return &Flow{sessionID: sessionID, enterer: enterer}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Start (re)opens the dialogue, discarding anything typed so far.
func (f *Flow) Start() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = AwaitingMatch
	f.matchID = 0
	return f.step("Send the id of the match you want to enter (or 'cancel').")
}

func (f *Flow) Cancel() Step {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Idle
	f.matchID = 0
	return f.step("Entry cancelled.")
}

// Submit feeds one chat message into the flow. Unparseable input leaves the
// state where it was. The amount step calls Enter exactly once unless the
// store reports contention, in which case the same amount can be resent.
func (f *Flow) Submit(ctx context.Context, text string) (Step, error) {
	text = strings.TrimSpace(text)
	if strings.EqualFold(text, cancelWord) {
		return f.Cancel(), nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch f.state {
	case AwaitingMatch:
		id, err := strconv.ParseInt(text, 10, 64)
		if err != nil || id <= 0 {
			return f.step("Match id must be a positive number."), fmt.Errorf("%w: match id %q", ErrInvalidInput, text)
		}
		f.matchID = id
		f.state = AwaitingAmount
		return f.step("How much do you want to pay for this entry?"), nil

	case AwaitingAmount:
		amount, err := money.ParsePositive(text)
		if err != nil {
			return f.step("Amount must be a positive number with at most two decimals."), fmt.Errorf("%w: %w", ErrInvalidInput, err)
		}
		receipt, err := f.enterer.Enter(ctx, services.EnterRequest{
			Account: services.AccountKey{SessionID: f.sessionID},
			MatchID: f.matchID,
			Amount:  amount,
		})
		if errors.Is(err, services.ErrTransientLockTimeout) {
			return f.step("The match is busy, send the amount again."), err
		}
		f.state = Done
		if err != nil {
			return f.step("Entry was not accepted."), err
		}
		step := f.step(fmt.Sprintf("Entered %s. Remaining balance %s.",
			receipt.Match.MatchName, money.Format(receipt.RemainingBalance)))
		step.Receipt = &receipt
		return step, nil
	}
	return f.step("Start an entry first."), ErrNotStarted
}

func (f *Flow) step(prompt string) Step {
	return Step{State: f.state, Prompt: prompt, MatchID: f.matchID}
}

package protocol

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func v() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
	})
	return validate
}

// ValidateState runs struct-tag validation over a fully decoded document
// and enforces the battle/overworld phase invariant the tags alone cannot
// express.
func ValidateState(s *State) error {
	if err := v().Struct(s); err != nil {
		return err
	}
	if (s.Phase == PhaseBattle) != (s.Battle != nil) {
		return errPhaseInvariant
	}
	if s.Phase == PhaseBattle && s.Overworld != nil {
		return errPhaseInvariant
	}
	return nil
}

// ValidateMessage validates any of the protocol structs carrying `validate`
// tags (VoteBatch, StatePush, VotesRequest, AuthFrame, ...).
func ValidateMessage(msg any) error {
	return v().Struct(msg)
}

var errPhaseInvariant = validationError("state: battle must be non-nil iff phase == battle, and nil when phase == battle for overworld")

type validationError string

func (e validationError) Error() string { return string(e) }

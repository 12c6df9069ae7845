package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTransitionForwardOnly(t *testing.T) {
	assert.NoError(t, Transition(StatusCreated, StatusInTransit))
	assert.NoError(t, Transition(StatusInTransit, StatusReceived))
	assert.NoError(t, Transition(StatusReceived, StatusCounted))
	assert.NoError(t, Transition(StatusCounted, StatusPaid))
}

func TestTransitionAllowsSkippingForward(t *testing.T) {
	assert.NoError(t, Transition(StatusCreated, StatusCounted))
	assert.NoError(t, Transition(StatusInTransit, StatusPaid))
}

func TestTransitionRejectsBackwardAndSame(t *testing.T) {
	assert.ErrorIs(t, Transition(StatusCounted, StatusReceived), ErrInvalidTransition)
	assert.ErrorIs(t, Transition(StatusPaid, StatusCreated), ErrInvalidTransition)
	assert.ErrorIs(t, Transition(StatusCounted, StatusCounted), ErrInvalidTransition)
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	assert.ErrorIs(t, Transition("limbo", StatusPaid), ErrUnknownStatus)
	assert.ErrorIs(t, Transition(StatusCreated, "limbo"), ErrUnknownStatus)
}

func TestOwnerNilWhenUnregistered(t *testing.T) {
	bag := QRBag{}
	assert.Nil(t, bag.Owner())
}

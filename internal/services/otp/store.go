package otp

import (
	"context"
	"errors"

	"paydesk_backend/internal/models"
)

// ErrNoSession is returned by Store.Update when nothing is stored for the key.
var ErrNoSession = errors.New("otp: no session")

// Action tells Store.Update what to do with the session after fn ran.
type Action int

const (
	Keep Action = iota
	Save
	Delete
)

// Store keeps OTP sessions keyed by (structure, method). Update runs fn as one
// critical section for its key.
type Store interface {
	Put(ctx context.Context, session *models.OTPSession) error
	Update(ctx context.Context, structureID string, method models.PaymentMethod, fn func(session *models.OTPSession) Action) error
	Delete(ctx context.Context, structureID string, method models.PaymentMethod) error
}

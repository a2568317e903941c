package notification

import (
	"context"
	"errors"
	"fmt"
)

// Address is a mail recipient.
type Address struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// String formats the address as `Name <email>`.
func (a Address) String() string {
	if a.Name == "" {
		return a.Email
	}
	return fmt.Sprintf("%s <%s>", a.Name, a.Email)
}

// Mail is a message ready for the transport: the transport renders Template
// with Context.
type Mail struct {
	To       Address
	Subject  string
	Template string
	Context  map[string]any
}

// Mailer delivers mails. Implementations return errors wrapped with
// Permanent when retrying cannot help (rejected recipient, bad request).
type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// ─────────────────────────────────────────────────────────────────────────────
// Permanent failures
// ─────────────────────────────────────────────────────────────────────────────

type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err, or anything it wraps, was marked Permanent.
func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

package student

import "context"

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Implementations live in infrastructure/persistence.
// ══════════════════════════════════════════════════════════════════════════════

// Repository resolves student references.
type Repository interface {
	// GetByID returns the student with the given id.
	// Returns shared.ErrStudentNotFound when it does not exist.
	GetByID(ctx context.Context, id int64) (*Student, error)

	// Exists reports whether the student exists.
	Exists(ctx context.Context, id int64) (bool, error)
}

// Writer persists students. The core never writes students; the seed command
// and tests do.
type Writer interface {
	Save(ctx context.Context, s *Student) error
}

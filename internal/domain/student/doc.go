// Package student contains the academy student model as seen by the core.
//
// Students are managed by an external registration flow. This package only
// defines what enrollments, check-ins and help orders need from them:
//
//   - Student: id, name and email, the recipient of every notification
//   - Summary: the {id, name, email} projection embedded in list responses
//   - Repository: point lookups used to resolve student references
//
// # Resolving references
//
// Every operation that takes a student id resolves it first and fails with
// shared.ErrStudentNotFound when the record is missing:
//
//	s, err := students.GetByID(ctx, cmd.StudentID)
//	if err != nil {
//	    return nil, err
//	}
//
// Implementations live in infrastructure/persistence (postgres, memory) and a
// read-through Redis cache decorates the Postgres one.
package student

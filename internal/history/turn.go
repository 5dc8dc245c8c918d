package history

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role is the speaker of a turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the two persisted roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Turn is one persisted message in the conversation. ID and CreatedAt are
// assigned by the store.
type Turn struct {
	ID        int64     `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrInvalidTurn is returned by Append when role or content break the Turn invariants.
var ErrInvalidTurn = errors.New("invalid turn")

// StoreError wraps a failure of the underlying database.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func validate(role Role, content string) error {
	if !role.Valid() {
		return fmt.Errorf("%w: role %q", ErrInvalidTurn, role)
	}
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: empty content", ErrInvalidTurn)
	}
	return nil
}

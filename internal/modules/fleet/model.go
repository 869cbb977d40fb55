// README: Driver and tricycle registry maintained by the TODA operator.
package fleet

import (
	"errors"
	"time"

	"toda/internal/types"
)

type Driver struct {
	ID         types.ID  `json:"id"`
	Name       string    `json:"name"`
	Phone      string    `json:"phone"`
	TricycleID types.ID  `json:"tricycle_id,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
}

type Tricycle struct {
	ID          types.ID  `json:"id"`
	BodyNumber  string    `json:"body_number"`
	PlateNumber string    `json:"plate_number"`
	CreatedAt   time.Time `json:"created_at"`
}

var (
	ErrNotFound   = errors.New("fleet record not found")
	ErrInactive   = errors.New("driver is not active")
	ErrBadRequest = errors.New("bad request")
	ErrDuplicate  = errors.New("fleet record already exists")
)

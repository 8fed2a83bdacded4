package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	maxSnackNameLen       = 200
	maxSnackPictureURLLen = 500
)

// Snack is the catalog aggregate referenced (weakly, by id) from slots and
// purchases. Deleting a snack only flags its own row; existing slots and
// purchase records keep pointing at the id.
type Snack struct {
	ID         uuid.UUID
	Name       string
	PictureURL string

	CreatedAt      time.Time
	CreatedBy      string
	LastModifiedAt time.Time
	LastModifiedBy string
	DeletedAt      *time.Time
	DeletedBy      string
	IsDeleted      bool

	Version int
}

func NewSnack(id uuid.UUID) *Snack {
	return &Snack{ID: id}
}

func (s *Snack) created() bool {
	return s.Version > 0
}

func (s *Snack) Clone() *Snack {
	out := *s
	if s.DeletedAt != nil {
		t := *s.DeletedAt
		out.DeletedAt = &t
	}
	return &out
}

// Execute validates and applies one command, returning the event it emits.
func (s *Snack) Execute(cmd Command) (Event, error) {
	if s.IsDeleted {
		return Event{}, NewValidationError(string(cmd.Kind), []string{"snack has been deleted"})
	}
	switch cmd.Kind {
	case CmdInitializeSnack:
		return s.initialize(cmd)
	case CmdUpdateSnack:
		return s.update(cmd)
	case CmdDeleteSnack:
		return s.delete(cmd)
	default:
		return Event{}, NewError(CodeValidation, string(cmd.Kind), "unknown snack command", nil)
	}
}

func snackFieldReasons(name, pictureURL string) []string {
	var reasons []string
	if isBlank(name) {
		reasons = append(reasons, "name must not be blank")
	}
	if len(name) > maxSnackNameLen {
		reasons = append(reasons, fmt.Sprintf("name must be at most %d characters", maxSnackNameLen))
	}
	if len(pictureURL) > maxSnackPictureURLLen {
		reasons = append(reasons, fmt.Sprintf("picture url must be at most %d characters", maxSnackPictureURLLen))
	}
	return reasons
}

func (s *Snack) initialize(cmd Command) (Event, error) {
	reasons := snackFieldReasons(cmd.Name, cmd.PictureURL)
	if s.created() {
		reasons = append(reasons, "snack is already initialized")
	}
	if isBlank(cmd.Op.OperatedBy) {
		reasons = append(reasons, "operator is required")
	}
	if len(reasons) > 0 {
		return Event{}, NewValidationError(string(cmd.Kind), reasons)
	}

	s.Name = cmd.Name
	s.PictureURL = cmd.PictureURL
	s.CreatedAt = cmd.Op.OperatedAt
	s.CreatedBy = cmd.Op.OperatedBy
	s.accept(cmd.Op)

	return s.newEvent(EvtSnackInitialized, cmd.Op), nil
}

func (s *Snack) update(cmd Command) (Event, error) {
	reasons := snackFieldReasons(cmd.Name, cmd.PictureURL)
	if !s.created() {
		reasons = append(reasons, "snack has not been initialized")
	}
	if len(reasons) > 0 {
		return Event{}, NewValidationError(string(cmd.Kind), reasons)
	}

	s.Name = cmd.Name
	s.PictureURL = cmd.PictureURL
	s.accept(cmd.Op)

	return s.newEvent(EvtSnackUpdated, cmd.Op), nil
}

func (s *Snack) delete(cmd Command) (Event, error) {
	if !s.created() {
		return Event{}, NewValidationError(string(cmd.Kind), []string{"snack has not been initialized"})
	}

	now := cmd.Op.OperatedAt
	s.IsDeleted = true
	s.DeletedAt = &now
	s.DeletedBy = cmd.Op.OperatedBy
	s.accept(cmd.Op)

	return s.newEvent(EvtSnackDeleted, cmd.Op), nil
}

func (s *Snack) accept(op Operation) {
	s.LastModifiedAt = op.OperatedAt
	s.LastModifiedBy = op.OperatedBy
	s.Version++
}

func (s *Snack) newEvent(kind EventKind, op Operation) Event {
	evt := Event{
		Kind:        kind,
		AggregateID: s.ID,
		Version:     s.Version,
		TraceID:     op.TraceID,
		OperatedAt:  op.OperatedAt,
		OperatedBy:  op.OperatedBy,
	}
	name := s.Name
	pictureURL := s.PictureURL
	evt.Name = &name
	evt.PictureURL = &pictureURL
	return evt
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func initializedSnack(t *testing.T, name string) *Snack {
	t.Helper()
	s := NewSnack(uuid.New())
	if _, err := s.Execute(Command{Kind: CmdInitializeSnack, Op: testOp(), Name: name}); err != nil {
		t.Fatalf("initialize snack: %v", err)
	}
	return s
}

func TestSnackInitialize(t *testing.T) {
	s := NewSnack(uuid.New())
	evt, err := s.Execute(Command{Kind: CmdInitializeSnack, Op: testOp(), Name: "Chips", PictureURL: "http://example.com/chips.png"})
	if err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if s.Version != 1 || s.Name != "Chips" {
		t.Fatalf("snack: %+v", s)
	}
	if evt.Kind != EvtSnackInitialized || evt.Name == nil || *evt.Name != "Chips" {
		t.Fatalf("event: %+v", evt)
	}

	if _, err := s.Execute(Command{Kind: CmdInitializeSnack, Op: testOp(), Name: "Chips"}); !IsCode(err, CodeValidation) {
		t.Fatalf("double initialize: want=%s got=%v", CodeValidation, err)
	}
}

func TestSnackNameValidation(t *testing.T) {
	s := NewSnack(uuid.New())
	if _, err := s.Execute(Command{Kind: CmdInitializeSnack, Op: testOp(), Name: "   "}); !IsCode(err, CodeValidation) {
		t.Fatalf("blank name: want=%s got=%v", CodeValidation, err)
	}

	longest := strings.Repeat("a", maxSnackNameLen)
	if _, err := s.Execute(Command{Kind: CmdInitializeSnack, Op: testOp(), Name: longest}); err != nil {
		t.Fatalf("max-length name rejected: %v", err)
	}

	over := NewSnack(uuid.New())
	if _, err := over.Execute(Command{Kind: CmdInitializeSnack, Op: testOp(), Name: longest + "a"}); !IsCode(err, CodeValidation) {
		t.Fatalf("over-length name: want=%s got=%v", CodeValidation, err)
	}

	url := NewSnack(uuid.New())
	_, err := url.Execute(Command{
		Kind:       CmdInitializeSnack,
		Op:         testOp(),
		Name:       "Chips",
		PictureURL: strings.Repeat("u", maxSnackPictureURLLen+1),
	})
	if !IsCode(err, CodeValidation) {
		t.Fatalf("over-length picture url: want=%s got=%v", CodeValidation, err)
	}
}

func TestSnackUpdate(t *testing.T) {
	s := initializedSnack(t, "Chips")
	evt, err := s.Execute(Command{Kind: CmdUpdateSnack, Op: testOp(), Name: "Crisps", PictureURL: "http://example.com/crisps.png"})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if s.Name != "Crisps" || s.Version != 2 || evt.Version != 2 {
		t.Fatalf("update: snack=%+v event version=%d", s, evt.Version)
	}

	fresh := NewSnack(uuid.New())
	if _, err := fresh.Execute(Command{Kind: CmdUpdateSnack, Op: testOp(), Name: "Crisps"}); !IsCode(err, CodeValidation) {
		t.Fatalf("update before initialize: want=%s got=%v", CodeValidation, err)
	}
}

func TestSnackDeleteIsTerminal(t *testing.T) {
	s := initializedSnack(t, "Chips")
	evt, err := s.Execute(Command{Kind: CmdDeleteSnack, Op: testOp()})
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if evt.Kind != EvtSnackDeleted || !s.IsDeleted || s.DeletedAt == nil {
		t.Fatalf("delete: event=%+v deleted=%v", evt, s.IsDeleted)
	}

	if _, err := s.Execute(Command{Kind: CmdUpdateSnack, Op: testOp(), Name: "Crisps"}); !IsCode(err, CodeValidation) {
		t.Fatalf("update after delete: want=%s got=%v", CodeValidation, err)
	}
}

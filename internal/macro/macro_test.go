package macro_test

import (
	"testing"

	"github.com/kettlelang/mes/internal/heap"
	"github.com/kettlelang/mes/internal/macro"
)

func TestGetSet(t *testing.T) {
	h := heap.New()
	tbl := macro.New()

	if _, ok := tbl.Get("when"); ok {
		t.Fatalf("expected no macro bound yet")
	}

	body := h.MakeNumber(1)
	tbl.Set("when", h.MakeMacro(body))

	got, ok := tbl.Get("when")
	if !ok {
		t.Fatalf("expected macro bound")
	}

	if h.NumberValue(h.MacroBody(got)) != 1 {
		t.Errorf("macro body mismatch")
	}
}

func TestSurvivesCollection(t *testing.T) {
	h := heap.New()
	tbl := macro.New()
	h.AddRoot(tbl)

	tbl.Set("when", h.MakeMacro(h.MakeNumber(7)))

	root := h.Empty
	h.Collect(&root)

	got, ok := tbl.Get("when")
	if !ok {
		t.Fatalf("macro lost across collection")
	}

	if h.NumberValue(h.MacroBody(got)) != 7 {
		t.Errorf("macro body not preserved across collection")
	}
}

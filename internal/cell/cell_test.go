package cell_test

import (
	"testing"

	"github.com/kettlelang/mes/internal/cell"
)

func TestBytesCells(t *testing.T) {
	tests := []struct {
		length int
		want   int
	}{
		{0, 0},
		{1, 1},
		{2, 1},
		{3, 2},
		{4, 2},
		{7, 4},
	}

	for _, tt := range tests {
		if got := cell.BytesCells(tt.length); got != tt.want {
			t.Errorf("BytesCells(%d) = %d, want %d", tt.length, got, tt.want)
		}
	}
}

func TestTagString(t *testing.T) {
	if got := cell.TagPair.String(); got != "pair" {
		t.Errorf("TagPair.String() = %q, want %q", got, "pair")
	}

	if got := cell.TagBrokenHeart.String(); got != "broken-heart" {
		t.Errorf("TagBrokenHeart.String() = %q, want %q", got, "broken-heart")
	}
}

func TestIndexString(t *testing.T) {
	if got := cell.Index(42).String(); got != "#42" {
		t.Errorf("Index(42).String() = %q, want %q", got, "#42")
	}
}

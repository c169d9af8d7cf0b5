package model

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

func TestNewAmount(t *testing.T) {
	x := new(uint256.Int).Mul(uint256.NewInt(1500), uint256.NewInt(1e15))
	a := NewAmount(x)
	if a.Raw != "1500000000000000000" {
		t.Errorf("raw = %s", a.Raw)
	}
	if !a.Display.Equal(decimal.RequireFromString("1.5")) {
		t.Errorf("display = %s, want 1.5", a.Display)
	}
}

func TestNewAmount_Nil(t *testing.T) {
	a := NewAmount(nil)
	if a.Raw != "0" || !a.Display.IsZero() {
		t.Errorf("nil amount should be zero, got %+v", a)
	}
}

func TestParseDisplay(t *testing.T) {
	v, err := ParseDisplay("2.25")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := new(uint256.Int).Mul(uint256.NewInt(225), uint256.NewInt(1e16))
	if !v.Eq(want) {
		t.Errorf("got %s, want %s", v.Dec(), want.Dec())
	}

	if _, err := ParseDisplay("-1"); err != ErrInvalidAmount {
		t.Errorf("expected ErrInvalidAmount for negative, got %v", err)
	}
	if _, err := ParseDisplay("abc"); err == nil {
		t.Error("expected parse error")
	}
}

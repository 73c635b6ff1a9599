package market

import (
	"testing"
	"time"
)

func TestIsOpen(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("timezone database unavailable")
	}

	// 2026-08-26是周三
	if !IsOpen("NASDAQ", time.Date(2026, 8, 26, 10, 30, 0, 0, ny)) {
		t.Fatal("wednesday 10:30 ET should be open")
	}
	if IsOpen("NASDAQ", time.Date(2026, 8, 26, 16, 0, 0, 0, ny)) {
		t.Fatal("16:00 ET should be closed")
	}
	if IsOpen("NASDAQ", time.Date(2026, 8, 26, 9, 15, 0, 0, ny)) {
		t.Fatal("before 09:30 ET should be closed")
	}
	// 周六
	if IsOpen("NYSE", time.Date(2026, 8, 29, 11, 0, 0, 0, ny)) {
		t.Fatal("saturday should be closed")
	}
}

func TestIsOpenUnknownExchangeUsesDefault(t *testing.T) {
	ny, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("timezone database unavailable")
	}
	if !IsOpen("XETRA", time.Date(2026, 8, 26, 10, 30, 0, 0, ny)) {
		t.Fatal("unknown exchange should fall back to US session")
	}
}

package store

import (
	"testing"
	"time"

	"github.com/roach88/scanlog/internal/model"
)

func TestFormatParseTime_RoundTrip(t *testing.T) {
	in := time.Date(2025, time.June, 1, 12, 34, 56, 789, time.FixedZone("X", 3600))

	got, err := parseTime(formatTime(in))
	if err != nil {
		t.Fatalf("parseTime() failed: %v", err)
	}
	if !got.Equal(in) {
		t.Errorf("round trip = %v, want %v", got, in)
	}
}

func TestParseTime_Legacy(t *testing.T) {
	got, err := parseTime("March 14, 2025 at 09:30:00")
	if err != nil {
		t.Fatalf("parseTime() failed: %v", err)
	}
	want := time.Date(2025, time.March, 14, 9, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("parseTime() = %v, want %v", got, want)
	}
}

func TestParseTime_Invalid(t *testing.T) {
	if _, err := parseTime("yesterday"); err == nil {
		t.Error("expected error for unparseable timestamp")
	}
}

func TestNullableValue(t *testing.T) {
	edit := nullableValue(model.MutationRequest{Kind: model.KindEdit, NewValue: "BBBBBBBBBB"})
	if !edit.Valid || edit.String != "BBBBBBBBBB" {
		t.Errorf("EDIT value = %+v", edit)
	}

	del := nullableValue(model.MutationRequest{Kind: model.KindDelete, NewValue: "BBBBBBBBBB"})
	if del.Valid {
		t.Errorf("DELETE value should be NULL, got %+v", del)
	}
}

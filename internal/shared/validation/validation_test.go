package validation

import (
	"testing"

	"internship-matcher/internal/shared/apperr"
)

type sample struct {
	Name     string   `json:"name" validate:"notblank"`
	Status   string   `json:"status" validate:"omitempty,oneof=open closed"`
	Openings int      `json:"openings" validate:"gte=0"`
	Tags     []string `json:"tags" validate:"max=2,dive,notblank"`
}

func TestStructReportsJSONFieldNames(t *testing.T) {
	err := Struct(sample{Name: "  ", Status: "paused", Openings: -1, Tags: []string{"a", " "}})
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Kind != apperr.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	want := map[string]string{
		"name":     "is required",
		"status":   "must be one of [open closed]",
		"openings": "must be >= 0",
		"tags[1]":  "is required",
	}
	for field, msg := range want {
		if appErr.Fields[field] != msg {
			t.Fatalf("field %s: got %q want %q (all=%v)", field, appErr.Fields[field], msg, appErr.Fields)
		}
	}
}

func TestStructPassesValidInput(t *testing.T) {
	if err := Struct(sample{Name: "x", Status: "open", Tags: []string{"go"}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

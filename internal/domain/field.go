package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// FieldKind identifies the GitHub project field type a value came from.
type FieldKind string

const (
	FieldText         FieldKind = "TEXT"
	FieldNumber       FieldKind = "NUMBER"
	FieldDate         FieldKind = "DATE"
	FieldSingleSelect FieldKind = "SINGLE_SELECT"
	FieldIteration    FieldKind = "ITERATION"
)

// FieldValue is a typed project field value. Text, single-select and iteration
// values live in Text; Number and Date hold the other kinds.
type FieldValue struct {
	Kind   FieldKind
	Text   string
	Number float64
	Date   time.Time
}

// TextValue returns a text field value.
func TextValue(s string) FieldValue { return FieldValue{Kind: FieldText, Text: s} }

// NumberValue returns a number field value.
func NumberValue(n float64) FieldValue { return FieldValue{Kind: FieldNumber, Number: n} }

// DateValue returns a date field value.
func DateValue(t time.Time) FieldValue { return FieldValue{Kind: FieldDate, Date: t} }

// SingleSelectValue returns a single-select field value.
func SingleSelectValue(name string) FieldValue {
	return FieldValue{Kind: FieldSingleSelect, Text: name}
}

// IterationValue formats an iteration as "title(startDate - duration)".
func IterationValue(title, startDate string, duration int) FieldValue {
	return FieldValue{Kind: FieldIteration, Text: fmt.Sprintf("%s(%s - %d)", title, startDate, duration)}
}

// Value returns the native Go value: string, float64 or time.Time.
func (v FieldValue) Value() any {
	switch v.Kind {
	case FieldNumber:
		return v.Number
	case FieldDate:
		return v.Date
	default:
		return v.Text
	}
}

// IsEmpty reports whether the value carries nothing worth syncing.
// A zero number is a real value.
func (v FieldValue) IsEmpty() bool {
	switch v.Kind {
	case FieldNumber:
		return false
	case FieldDate:
		return v.Date.IsZero()
	case "":
		return true
	default:
		return v.Text == ""
	}
}

func (v FieldValue) String() string {
	switch v.Kind {
	case FieldNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case FieldDate:
		return v.Date.Format(DateLayout)
	default:
		return v.Text
	}
}

// NormalizeFieldName lowercases a field name and replaces spaces and hyphens with
// underscores: "Engineering Start Date" becomes "engineering_start_date".
func NormalizeFieldName(name string) string {
	return strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(name))
}

// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes holds the values that flow through a chain run: step
// inputs and outputs, plans, executed steps and the final result.
package datatypes

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
)

// Kind discriminates the variants of InputValue.
type Kind int

const (
	// KindNone is the zero value. Error-flagged steps carry it as output.
	KindNone Kind = iota
	// KindText is free text.
	KindText
	// KindRecord is a flat-or-nested key/value record.
	KindRecord
)

// String implements fmt.Stringer.
func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindRecord:
		return "record"
	default:
		return "none"
	}
}

// InputValue is either free text or a structured record.
//
// Description:
//
//	Used for both step inputs and step outputs. The zero value is KindNone.
//	Values are treated as immutable: AsRecord returns a copy.
//
// Thread Safety: Safe for concurrent reads.
type InputValue struct {
	kind   Kind
	text   string
	record map[string]any
}

// Text builds a text value.
func Text(s string) InputValue {
	return InputValue{kind: KindText, text: s}
}

// Record builds a record value. The map is copied.
func Record(m map[string]any) InputValue {
	return InputValue{kind: KindRecord, record: maps.Clone(m)}
}

// None returns the empty value.
func None() InputValue {
	return InputValue{}
}

// Kind returns the variant.
func (v InputValue) Kind() Kind { return v.kind }

// IsNone reports whether v holds no value.
func (v InputValue) IsNone() bool { return v.kind == KindNone }

// IsText reports whether v is text.
func (v InputValue) IsText() bool { return v.kind == KindText }

// IsRecord reports whether v is a record.
func (v InputValue) IsRecord() bool { return v.kind == KindRecord }

// AsText returns the text and true when v is text.
func (v InputValue) AsText() (string, bool) {
	return v.text, v.kind == KindText
}

// AsRecord returns a copy of the record and true when v is a record.
func (v InputValue) AsRecord() (map[string]any, bool) {
	if v.kind != KindRecord {
		return nil, false
	}
	return maps.Clone(v.record), true
}

// Field returns a single record field. It is a no-copy read for callers
// that only need one key.
func (v InputValue) Field(key string) (any, bool) {
	if v.kind != KindRecord {
		return nil, false
	}
	val, ok := v.record[key]
	return val, ok
}

// Render returns v as text.
//
// Description:
//
//	Text is returned verbatim. A record renders as compact JSON with keys
//	sorted and HTML characters left unescaped. None renders as "".
func (v InputValue) Render() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindRecord:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(v.record); err != nil {
			return fmt.Sprintf("%v", v.record)
		}
		return string(bytes.TrimRight(buf.Bytes(), "\n"))
	default:
		return ""
	}
}

// String implements fmt.Stringer.
func (v InputValue) String() string { return v.Render() }

// MarshalJSON encodes text as a JSON string, a record as an object and
// None as null.
func (v InputValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindRecord:
		return json.Marshal(v.record)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON string into text, an object into a record
// and null into None. Any other JSON value (number, bool, array) becomes
// text holding its compact JSON form.
func (v *InputValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = None()
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return fmt.Errorf("datatypes: decoding text input: %w", err)
		}
		*v = Text(s)
	case '{':
		var m map[string]any
		if err := json.Unmarshal(trimmed, &m); err != nil {
			return fmt.Errorf("datatypes: decoding record input: %w", err)
		}
		*v = InputValue{kind: KindRecord, record: m}
	default:
		var buf bytes.Buffer
		if err := json.Compact(&buf, trimmed); err != nil {
			return fmt.Errorf("datatypes: decoding input: %w", err)
		}
		*v = Text(buf.String())
	}
	return nil
}

// TruncateRunes returns the first n runes of s. It reports whether
// anything was cut.
func TruncateRunes(s string, n int) (string, bool) {
	if n <= 0 {
		return "", s != ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i], true
		}
		count++
	}
	return s, false
}

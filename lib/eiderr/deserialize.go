// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package eiderr

// Deserialize reconstructs an error from a wire object. It never
// fails: a missing, non-string or unrecognized "code" yields
// CodeUnknownError.
//
// A non-empty string "message" replaces the default message; an empty
// one is dropped. Every other field
// is copied into Extra. The Code field is decided by the kind lookup
// alone; when the wire code was not recognized it is kept verbatim as
// Extra["code"] so the peer's value is still inspectable.
func Deserialize(wire map[string]any) *Error {
	code := CodeUnknownError
	rawCode, hasCode := wire["code"]
	if s, ok := rawCode.(string); ok {
		if k, known := kinds[Code(s)]; known && k.wire {
			code = Code(s)
		}
	}

	result := New(code, "")
	for key, value := range wire {
		switch key {
		case "code":
			if hasCode && code == CodeUnknownError && rawCode != string(CodeUnknownError) {
				result.With(key, value)
			}
		case "message":
			s, ok := value.(string)
			switch {
			case !ok:
				result.With(key, value)
			case s != "":
				result.Message = s
			}
		default:
			result.With(key, value)
		}
	}
	return result
}

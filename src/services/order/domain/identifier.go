package domain

import "github.com/google/uuid"

const canonicalIDLength = 36

// ParseID validates raw as a hyphenated 8-4-4-4-12 hexadecimal UUID (any
// case) and returns its value. uuid.Parse alone also admits the urn:uuid:,
// braced and unhyphenated forms, which are rejected here.
func ParseID(field, raw string) (uuid.UUID, error) {
	if !isCanonicalUUID(raw) {
		return uuid.Nil, &ValidationError{Field: field, Value: raw, Reason: "must be a UUID in 8-4-4-4-12 form"}
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &ValidationError{Field: field, Value: raw, Reason: err.Error()}
	}
	return id, nil
}

// ParseOptionalID is ParseID for optional fields; nil stays nil.
func ParseOptionalID(field string, raw *string) (*uuid.UUID, error) {
	if raw == nil {
		return nil, nil
	}
	id, err := ParseID(field, *raw)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func isCanonicalUUID(s string) bool {
	if len(s) != canonicalIDLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch i {
		case 8, 13, 18, 23:
			if c != '-' {
				return false
			}
		default:
			if !isHex(c) {
				return false
			}
		}
	}
	return true
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

package model

import "fmt"

// KYCStatus is the tri-state know-your-customer outcome for an account.
// The zero value is KYCUnset.
type KYCStatus uint8

const (
	KYCUnset KYCStatus = iota
	KYCApproved
	KYCRejected
)

func (s KYCStatus) String() string {
	switch s {
	case KYCUnset:
		return "unset"
	case KYCApproved:
		return "approved"
	case KYCRejected:
		return "rejected"
	}
	return fmt.Sprintf("KYCStatus(%d)", uint8(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s KYCStatus) MarshalText() ([]byte, error) {
	switch s {
	case KYCUnset, KYCApproved, KYCRejected:
		return []byte(s.String()), nil
	}
	return nil, fmt.Errorf("invalid KYC status %d", uint8(s))
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *KYCStatus) UnmarshalText(text []byte) error {
	switch string(text) {
	case "unset", "":
		*s = KYCUnset
	case "approved":
		*s = KYCApproved
	case "rejected":
		*s = KYCRejected
	default:
		return fmt.Errorf("unknown KYC status %q", text)
	}
	return nil
}

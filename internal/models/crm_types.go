package models

import (
	"encoding/json"
	"errors"
)

// CRMString is a custom string type that handles the CRM's dynamic typing.
// The legacy API returns `false` (boolean) for empty text fields instead of an
// empty string. This type implements json.Unmarshaler to handle both.
type CRMString string

// UnmarshalJSON handles dynamic typing from the CRM
func (cs *CRMString) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*cs = CRMString(s)
		return nil
	}

	// Empty text fields come back as boolean false
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		if !b {
			*cs = ""
			return nil
		}
		*cs = "true"
		return nil
	}

	return errors.New("CRMString: cannot unmarshal value into string")
}

// String returns native string value
func (cs CRMString) String() string {
	return string(cs)
}

package compat

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	"github.com/goccy/go-json"
)

// Report is the validation result for one class as handed to the tool that
// decides whether to apply the patch.
type Report struct {
	ClassName string              `json:"className" cbor:"1,keyasint"`
	Changes   []UnsupportedChange `json:"changes" cbor:"2,keyasint,omitempty"`
}

// Compatible reports whether the patch can be applied as is.
func (r Report) Compatible() bool { return len(r.Changes) == 0 }

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("compat: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalJSON renders r as indented JSON. Changes is always an array.
func MarshalJSON(r Report) ([]byte, error) {
	if r.Changes == nil {
		r.Changes = []UnsupportedChange{}
	}
	return json.MarshalIndent(r, "", "  ")
}

// UnmarshalJSON parses a report produced by MarshalJSON.
func UnmarshalJSON(data []byte) (Report, error) {
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("compat: unmarshal report: %w", err)
	}
	return r, nil
}

// MarshalCBOR serializes r with canonical CBOR, so equal reports encode to
// equal bytes.
func MarshalCBOR(r Report) ([]byte, error) {
	return cborEncMode.Marshal(r)
}

// UnmarshalCBOR deserializes a report from CBOR bytes.
func UnmarshalCBOR(data []byte) (Report, error) {
	var r Report
	if err := cbor.Unmarshal(data, &r); err != nil {
		return Report{}, fmt.Errorf("compat: unmarshal report: %w", err)
	}
	return r, nil
}

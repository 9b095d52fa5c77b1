package netbadge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	// BadgeID is the identifier of the badge element a host page provides.
	BadgeID = "network-badge"

	// StatusPath is the path of the network status endpoint, relative to
	// the updater's base URL.
	StatusPath = "/api/network/status"

	// PollInterval is the fixed cadence of poll cycles started by [Watch].
	PollInterval = 15 * time.Second

	placeholder  = "-"
	failureLabel = "Network"
)

// Variant is the visual state of a rendered badge.
type Variant string

const (
	// VariantNormal indicates a healthy status with no warning.
	VariantNormal Variant = "normal"

	// VariantWarning indicates a degraded but non-fatal condition.
	VariantWarning Variant = "warning"

	// VariantError indicates a failed cycle or a server-reported error.
	VariantError Variant = "error"
)

// String returns the string representation of the variant.
func (v Variant) String() string {
	return string(v)
}

// Class returns the CSS class string for the variant.
func (v Variant) Class() string {
	switch v {
	case VariantWarning:
		return BadgeID + " warning"
	case VariantError:
		return BadgeID + " error"
	default:
		return BadgeID
	}
}

// Badge is one rendered badge: a visual variant plus its visible text.
type Badge struct {
	Variant Variant
	Text    string
}

// Class returns the CSS class string for the badge.
func (b Badge) Class() string {
	return b.Variant.Class()
}

// NetworkStatus is the payload decoded from the status endpoint.
//
// Every field is optional. A NetworkStatus lives for a single poll cycle;
// nothing is retained once the badge has been rendered.
type NetworkStatus struct {
	EffectiveIP string `json:"effective_ip"`
	City        string `json:"city"`
	Region      string `json:"region"`
	Country     string `json:"country"`
	Warning     Flag   `json:"warning"`
	Error       string `json:"error"`
}

// Flag is a loosely-typed boolean.
//
// It decodes JSON true/false and null, and also strings: the status server
// reports warnings as human-readable messages, and any non-empty message
// counts as set.
type Flag bool

// UnmarshalJSON implements json.Unmarshaler for Flag.
func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = false
		return nil
	}

	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		*f = Flag(b)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = Flag(s != "")
		return nil
	}

	return fmt.Errorf("warning must be a boolean or string, got %s", data)
}

// Location joins the non-empty city, region and country in that order,
// comma-separated. It returns "-" when all three are empty.
func (s NetworkStatus) Location() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{s.City, s.Region, s.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return placeholder
	}
	return strings.Join(parts, ", ")
}

// RenderStatus renders a successfully decoded payload.
//
// A non-empty Error always yields [VariantError], whatever the warning flag
// says. RenderStatus is pure: equal inputs render equal badges.
func RenderStatus(s NetworkStatus) Badge {
	if s.Error != "" {
		return Badge{
			Variant: VariantError,
			Text:    failureLabel + ": " + s.Error,
		}
	}

	ip := s.EffectiveIP
	if ip == "" {
		ip = placeholder
	}

	variant := VariantNormal
	if s.Warning {
		variant = VariantWarning
	}

	return Badge{
		Variant: variant,
		Text:    fmt.Sprintf("IP %s | %s", ip, s.Location()),
	}
}

// RenderFailure renders a cycle that failed before a payload was available.
func RenderFailure(err error) Badge {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Badge{
		Variant: VariantError,
		Text:    failureLabel + ": " + msg,
	}
}

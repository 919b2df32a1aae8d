// Package service defines the closed set of government services the assistant
// can answer about.
package service

import (
	"fmt"
	"strings"
)

// ID identifies one government service domain. The zero value means unresolved.
type ID string

const (
	RationCard            ID = "ration_card"
	BirthCertificate      ID = "birth_certificate"
	UnemploymentAllowance ID = "unemployment_allowance"
)

var all = []ID{RationCard, BirthCertificate, UnemploymentAllowance}

// All returns every service in canonical order. The order doubles as the
// one-hot feature layout used by the next-step advisor.
func All() []ID {
	out := make([]ID, len(all))
	copy(out, all)
	return out
}

// Valid reports whether id is a member of the enumeration.
func (id ID) Valid() bool {
	for _, s := range all {
		if s == id {
			return true
		}
	}
	return false
}

// Index returns the position of id in All, or -1.
func (id ID) Index() int {
	for i, s := range all {
		if s == id {
			return i
		}
	}
	return -1
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return string(id)
}

// Title is the human readable service name.
func (id ID) Title() string {
	switch id {
	case RationCard:
		return "Ration Card"
	case BirthCertificate:
		return "Birth Certificate"
	case UnemploymentAllowance:
		return "Unemployment Allowance"
	default:
		return ""
	}
}

// Parse converts caller input into an ID. Blank input yields the zero ID and no error.
func Parse(raw string) (ID, error) {
	raw = strings.TrimSpace(strings.ToLower(raw))
	if raw == "" {
		return "", nil
	}
	id := ID(raw)
	if !id.Valid() {
		return "", fmt.Errorf("unknown service %q", raw)
	}
	return id, nil
}

// Descriptions are the routing descriptions embedded once at startup.
var Descriptions = map[ID]string{
	RationCard: "Kerala ration card services including eligibility criteria, " +
		"required documents, card types, online application through " +
		"Civil Supplies portal, Akshaya centre offline process, " +
		"fees, timelines, corrections, and member changes.",
	BirthCertificate: "Kerala birth certificate registration including eligibility, " +
		"registration timelines, required documents for hospital and " +
		"home births, online portals like K-SMART and ILGMS, " +
		"offline registration at local bodies, late registration, " +
		"corrections, duplicates, and special cases.",
	UnemploymentAllowance: "Kerala unemployment allowance schemes including Unemployment " +
		"Allowance Scheme and MGNREGA unemployment allowance, " +
		"eligibility conditions, required documents, application " +
		"process through local bodies, benefit rules, appeals, " +
		"and legal framework.",
}

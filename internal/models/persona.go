package models

import "strings"

// ProtectedPersonaNames are the built-in writing voices that can never be deleted
var ProtectedPersonaNames = []string{"Si Kritis", "Si Storyteller", "Si Realistis", "Si Santuy"}

// Persona is a named writing voice
type Persona struct {
	Name      string   `json:"name" badgerhold:"key"`
	Desc      string   `json:"desc"`
	Samples   []string `json:"samples,omitempty"`
	Active    bool     `json:"active"`
	IsDefault bool     `json:"is_default"`
}

// IsProtected reports whether the persona is one of the built-in voices
func (p Persona) IsProtected() bool {
	if p.IsDefault {
		return true
	}
	for _, name := range ProtectedPersonaNames {
		if strings.EqualFold(strings.TrimSpace(p.Name), name) {
			return true
		}
	}
	return false
}

package tts

import "math/rand/v2"

// Orpheus voice catalog, grouped by gender. DefaultVoice is used when a
// job carries neither a usable voice nor a recognized gender.
const DefaultVoice = "tara"

var (
	femaleVoices = []string{"tara", "leah", "jess", "mia", "zoe"}
	maleVoices   = []string{"leo", "dan", "zac"}
	allVoices    = append(append([]string{}, femaleVoices...), maleVoices...)
)

// Voices returns the full voice catalog.
func Voices() []string {
	out := make([]string, len(allVoices))
	copy(out, allVoices)
	return out
}

// KnownVoice reports whether name is in the catalog.
func KnownVoice(name string) bool {
	for _, v := range allVoices {
		if v == name {
			return true
		}
	}
	return false
}

// VoicePicker selects the voice for a job, once per job, before synthesis.
type VoicePicker struct {
	random bool
	intN   func(n int) int
}

// NewVoicePicker creates a picker. When random is true every pick is
// uniform over the full catalog, ignoring the job's voice and gender.
func NewVoicePicker(random bool) *VoicePicker {
	return &VoicePicker{random: random, intN: rand.IntN}
}

// Pick resolves the voice for a job: random mode draws uniformly from the
// catalog; otherwise the job's requested voice wins if known, then the
// gender default, then DefaultVoice.
func (p *VoicePicker) Pick(requested, gender string) string {
	if p.random {
		return allVoices[p.intN(len(allVoices))]
	}

	if KnownVoice(requested) {
		return requested
	}

	switch gender {
	case "female":
		return femaleVoices[0]
	case "male":
		return maleVoices[0]
	}

	return DefaultVoice
}

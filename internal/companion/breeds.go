// Package companion holds the pet breeds a household can unlock over time.
package companion

import "time"

// Breed is a companion breed and the number of whole days a household
// must exist before it unlocks.
type Breed struct {
	ID              string   `json:"id" yaml:"id"`
	Name            string   `json:"name" yaml:"name"`
	Description     string   `json:"description,omitempty" yaml:"description,omitempty"`
	Traits          []string `json:"traits,omitempty" yaml:"traits,omitempty"`
	UnlockAfterDays int      `json:"unlock_after_days" yaml:"unlock_after_days"`
}

// Breeds returns the stock breed table ordered by unlock threshold.
func Breeds() []Breed {
	return []Breed{
		{ID: "golden-retriever", Name: "Golden Retriever", Description: "Soft and clingy", Traits: []string{"friendly", "smart", "loyal"}, UnlockAfterDays: 0},
		{ID: "shiba-inu", Name: "Shiba Inu", Description: "Round and cute", Traits: []string{"independent", "brave", "cute"}, UnlockAfterDays: 100},
		{ID: "corgi", Name: "Corgi", Description: "Short legs, big heart", Traits: []string{"active", "friendly", "curious"}, UnlockAfterDays: 365},
		{ID: "husky", Name: "Husky", Description: "Mischievous little wolf", Traits: []string{"energetic", "funny"}, UnlockAfterDays: 520},
	}
}

// ElapsedDays returns the whole days between since and now. A future since
// counts as zero.
func ElapsedDays(since, now time.Time) int {
	if !now.After(since) {
		return 0
	}
	return int(now.Sub(since) / (24 * time.Hour))
}

// UnlockedBreeds returns the stock breeds whose threshold has been reached.
func UnlockedBreeds(since, now time.Time) []Breed {
	days := ElapsedDays(since, now)
	out := []Breed{}
	for _, b := range Breeds() {
		if b.UnlockAfterDays <= days {
			out = append(out, b)
		}
	}
	return out
}

// NextUnlock returns the first locked breed and the days remaining until it
// unlocks.
func NextUnlock(since, now time.Time) (Breed, int, bool) {
	days := ElapsedDays(since, now)
	for _, b := range Breeds() {
		if b.UnlockAfterDays > days {
			return b, b.UnlockAfterDays - days, true
		}
	}
	return Breed{}, 0, false
}

// Package features defines the structured criteria an instant-meeting
// participant declares about the person they are looking for, and the
// attributes participants describe themselves with. Matching is a pure
// comparison over a closed set of criterion kinds; free text never enters
// the predicate.
package features

import (
	"fmt"
	"strings"
)

// Kind enumerates the closed set of criterion kinds. Anything outside this
// set is rejected at declaration time and never reaches evaluation.
type Kind string

const (
	KindAgeRange      Kind = "age_range"
	KindHeightRange   Kind = "height_range"
	KindAppearanceTag Kind = "appearance_tag"
	KindLocationZone  Kind = "location_zone"
)

// AllKinds lists every supported kind, in declaration order.
var AllKinds = []Kind{KindAgeRange, KindHeightRange, KindAppearanceTag, KindLocationZone}

func (k Kind) Valid() bool {
	switch k {
	case KindAgeRange, KindHeightRange, KindAppearanceTag, KindLocationZone:
		return true
	}
	return false
}

const (
	maxAgeYears  = 120
	maxHeightCM  = 280
	maxTagLen    = 32
	maxZoneLen   = 64
	maxCriteria  = 8
	maxAttrTags  = 16
)

// AgeRange bounds are inclusive, in whole years.
type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// HeightRange bounds are inclusive, in centimeters.
type HeightRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Criterion is one declared requirement. Exactly the payload field matching
// Kind must be set; Validate enforces this so a stored criterion can always
// be evaluated.
type Criterion struct {
	Kind        Kind         `json:"kind"`
	AgeRange    *AgeRange    `json:"age_range,omitempty"`
	HeightRange *HeightRange `json:"height_range,omitempty"`
	Tag         string       `json:"tag,omitempty"`
	Zone        string       `json:"zone,omitempty"`
}

// Validate checks the criterion is well-formed: a known kind carrying its
// own payload and nothing else.
func (c Criterion) Validate() error {
	if !c.Kind.Valid() {
		return fmt.Errorf("unknown criterion kind %q", c.Kind)
	}

	switch c.Kind {
	case KindAgeRange:
		if c.AgeRange == nil {
			return fmt.Errorf("%s criterion requires an age_range payload", c.Kind)
		}
		if c.HeightRange != nil || c.Tag != "" || c.Zone != "" {
			return fmt.Errorf("%s criterion carries extra payload", c.Kind)
		}
		if c.AgeRange.Min <= 0 || c.AgeRange.Max < c.AgeRange.Min || c.AgeRange.Max > maxAgeYears {
			return fmt.Errorf("age_range must satisfy 0 < min <= max <= %d", maxAgeYears)
		}

	case KindHeightRange:
		if c.HeightRange == nil {
			return fmt.Errorf("%s criterion requires a height_range payload", c.Kind)
		}
		if c.AgeRange != nil || c.Tag != "" || c.Zone != "" {
			return fmt.Errorf("%s criterion carries extra payload", c.Kind)
		}
		if c.HeightRange.Min <= 0 || c.HeightRange.Max < c.HeightRange.Min || c.HeightRange.Max > maxHeightCM {
			return fmt.Errorf("height_range must satisfy 0 < min <= max <= %d", maxHeightCM)
		}

	case KindAppearanceTag:
		if c.AgeRange != nil || c.HeightRange != nil || c.Zone != "" {
			return fmt.Errorf("%s criterion carries extra payload", c.Kind)
		}
		tag := normalize(c.Tag)
		if tag == "" {
			return fmt.Errorf("appearance_tag criterion requires a non-empty tag")
		}
		if len(tag) > maxTagLen {
			return fmt.Errorf("appearance tag exceeds %d characters", maxTagLen)
		}

	case KindLocationZone:
		if c.AgeRange != nil || c.HeightRange != nil || c.Tag != "" {
			return fmt.Errorf("%s criterion carries extra payload", c.Kind)
		}
		zone := normalize(c.Zone)
		if zone == "" {
			return fmt.Errorf("location_zone criterion requires a non-empty zone")
		}
		if len(zone) > maxZoneLen {
			return fmt.Errorf("location zone exceeds %d characters", maxZoneLen)
		}
	}

	return nil
}

// SatisfiedBy reports whether the attributes meet this single criterion.
// Pure and deterministic; unknown or missing data never satisfies a
// criterion (an unset age cannot fall inside an age range).
func (c Criterion) SatisfiedBy(a Attributes) bool {
	switch c.Kind {
	case KindAgeRange:
		if c.AgeRange == nil || a.Age <= 0 {
			return false
		}
		return a.Age >= c.AgeRange.Min && a.Age <= c.AgeRange.Max

	case KindHeightRange:
		if c.HeightRange == nil || a.HeightCM <= 0 {
			return false
		}
		return a.HeightCM >= c.HeightRange.Min && a.HeightCM <= c.HeightRange.Max

	case KindAppearanceTag:
		want := normalize(c.Tag)
		if want == "" {
			return false
		}
		for _, tag := range a.Tags {
			if normalize(tag) == want {
				return true
			}
		}
		return false

	case KindLocationZone:
		want := normalize(c.Zone)
		return want != "" && normalize(a.Zone) == want
	}

	return false
}

// Criteria is the full declaration: every criterion must hold (AND).
type Criteria []Criterion

// Validate checks each criterion and, when allowed is non-nil, that every
// kind is one the meeting permits. An empty declaration is rejected: an
// interest must describe someone.
func (cs Criteria) Validate(allowed []Kind) error {
	if len(cs) == 0 {
		return fmt.Errorf("at least one criterion is required")
	}
	if len(cs) > maxCriteria {
		return fmt.Errorf("at most %d criteria are allowed", maxCriteria)
	}

	for i, c := range cs {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("criterion %d: %w", i, err)
		}
		if allowed != nil && !kindAllowed(c.Kind, allowed) {
			return fmt.Errorf("criterion %d: kind %q is not enabled for this meeting", i, c.Kind)
		}
	}

	return nil
}

// SatisfiedBy reports whether the attributes meet every criterion. An empty
// set matches nobody; validation rejects it before storage anyway.
func (cs Criteria) SatisfiedBy(a Attributes) bool {
	if len(cs) == 0 {
		return false
	}
	for _, c := range cs {
		if !c.SatisfiedBy(a) {
			return false
		}
	}
	return true
}

// Attributes describe a participant as they present at the meeting: the
// facts criteria are evaluated against. Zero values mean "not stated".
type Attributes struct {
	Age      int      `json:"age,omitempty"`
	HeightCM int      `json:"height_cm,omitempty"`
	Tags     []string `json:"tags,omitempty"`
	Zone     string   `json:"zone,omitempty"`
}

// Validate sanity-checks self-declared attributes at join time.
func (a Attributes) Validate() error {
	if a.Age < 0 || a.Age > maxAgeYears {
		return fmt.Errorf("age must be between 0 and %d", maxAgeYears)
	}
	if a.HeightCM < 0 || a.HeightCM > maxHeightCM {
		return fmt.Errorf("height_cm must be between 0 and %d", maxHeightCM)
	}
	if len(a.Tags) > maxAttrTags {
		return fmt.Errorf("at most %d appearance tags are allowed", maxAttrTags)
	}
	for _, tag := range a.Tags {
		t := normalize(tag)
		if t == "" {
			return fmt.Errorf("appearance tags must be non-empty")
		}
		if len(t) > maxTagLen {
			return fmt.Errorf("appearance tag %q exceeds %d characters", tag, maxTagLen)
		}
	}
	if len(normalize(a.Zone)) > maxZoneLen {
		return fmt.Errorf("zone exceeds %d characters", maxZoneLen)
	}
	return nil
}

func kindAllowed(k Kind, allowed []Kind) bool {
	for _, a := range allowed {
		if a == k {
			return true
		}
	}
	return false
}

// normalize folds case and trims whitespace so tag/zone comparison is not
// sensitive to client formatting.
func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

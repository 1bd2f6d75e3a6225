package model

import (
	"image"
	"strings"
	"time"
)

// CentimetersPerFoot converts centimeter distances for display in feet.
const CentimetersPerFoot = 30.48

// Pairing classifies the mask state of the two faces of a pair.
type Pairing string

const (
	PairingBothMasked Pairing = "both_masked"
	PairingOneMasked  Pairing = "one_masked"
	PairingNoneMasked Pairing = "none_masked"
)

// PairingOf returns the pairing class of faces a and b.
func PairingOf(a, b FaceRecord) Pairing {
	switch {
	case a.Masked && b.Masked:
		return PairingBothMasked
	case a.Masked || b.Masked:
		return PairingOneMasked
	default:
		return PairingNoneMasked
	}
}

// Color returns the annotation color for the pairing (green, orange, red).
func (p Pairing) Color() string {
	switch p {
	case PairingBothMasked:
		return "#00ff00"
	case PairingOneMasked:
		return "#ffa500"
	default:
		return "#ff0000"
	}
}

// PairDistance is the estimated physical separation between two faces.
// I and J index into the scene's ordered face records.
type PairDistance struct {
	I          int         `json:"i"`
	J          int         `json:"j"`
	CenterA    image.Point `json:"center_a"`
	CenterB    image.Point `json:"center_b"`
	DistanceCM float64     `json:"distance_cm"`
	Pairing    Pairing     `json:"pairing"`
}

// DistanceFt returns the distance in feet.
func (p PairDistance) DistanceFt() float64 {
	return p.DistanceCM / CentimetersPerFoot
}

// Involves reports whether face index k is an endpoint of the pair.
func (p PairDistance) Involves(k int) bool {
	return p.I == k || p.J == k
}

// AssessmentStatus describes which scoring path produced an assessment.
type AssessmentStatus string

const (
	StatusInsufficientFaces AssessmentStatus = "insufficient_faces"
	StatusSingleFace        AssessmentStatus = "single_face"
	StatusScored            AssessmentStatus = "scored"
)

// RiskTier is the discrete risk level derived from the density score.
type RiskTier string

const (
	TierNone     RiskTier = ""
	TierVeryLow  RiskTier = "very_low"
	TierLow      RiskTier = "low"
	TierMedium   RiskTier = "medium"
	TierHigh     RiskTier = "high"
	TierVeryHigh RiskTier = "very_high"
)

// ParseTier parses a tier name, accepting spaces or dashes as separators.
func ParseTier(s string) (RiskTier, bool) {
	norm := strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch t := RiskTier(norm); t {
	case TierVeryLow, TierLow, TierMedium, TierHigh, TierVeryHigh:
		return t, true
	}
	return TierNone, false
}

// Words returns the tier as lower-case words, e.g. "very high".
func (t RiskTier) Words() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// Describe returns the interpretation shown next to the safety score.
func (t RiskTier) Describe() string {
	switch t {
	case TierVeryHigh:
		return "High possibility that most people in the scene are not wearing masks."
	case TierHigh, TierMedium, TierLow:
		return "High possibility that more than half of the people wear masks or most keep their distance."
	case TierVeryLow:
		return "People in the scene are wearing masks and keeping their distance."
	default:
		return ""
	}
}

// RiskAssessment is the output of one scoring pass.
type RiskAssessment struct {
	Status            AssessmentStatus `json:"status"`
	FaceCount         int              `json:"face_count"`
	PairCount         int              `json:"pair_count"`
	AverageDistanceCM float64          `json:"average_distance_cm"`
	DensityScore      float64          `json:"density_score"`
	// SafetyScore is DensityScore scaled by 100 for display.
	SafetyScore float64  `json:"safety_score"`
	Tier        RiskTier `json:"tier,omitempty"`
	Message     string   `json:"message"`
}

// AverageDistanceFt returns the mean pair distance in feet.
func (a RiskAssessment) AverageDistanceFt() float64 {
	return a.AverageDistanceCM / CentimetersPerFoot
}

// MaskAdoption reports the outcome of the mask-adoption counterfactual.
type MaskAdoption struct {
	Flipped            int     `json:"flipped"`
	PercentageIncrease float64 `json:"percentage_increase"`
}

// AssessmentRun is a persisted assessment, optionally with its
// mask-adoption counterfactual.
type AssessmentRun struct {
	ID           string          `json:"id"`
	Source       string          `json:"source"`
	AvgFaceWidth float64         `json:"avg_face_width"`
	ConfigHash   string          `json:"config_hash"`
	Assessment   RiskAssessment  `json:"assessment"`
	Pairs        []PairDistance  `json:"pairs"`
	// Faces are the scored face records, kept for overlays.
	Faces        []FaceRecord    `json:"faces,omitempty"`
	Adoption     *MaskAdoption   `json:"adoption,omitempty"`
	After        *RiskAssessment `json:"after,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
}

package aiusage

import "fmt"

// Feature represents an AI-backed capability exposed by the product
type Feature string

const (
	// FeatureChat is the AI assistant chat for tenants and landlords
	FeatureChat Feature = "chat"

	// FeatureOCR is document OCR (leases, invoices, meter photos)
	FeatureOCR Feature = "ocr"

	// FeatureAnalysis is document and portfolio analysis
	FeatureAnalysis Feature = "analysis"

	// FeatureCategorization is automatic categorization of expenses and requests
	FeatureCategorization Feature = "categorization"
)

// String returns the string representation of Feature
func (f Feature) String() string {
	return string(f)
}

// IsValid returns true if the feature is valid
func (f Feature) IsValid() bool {
	switch f {
	case FeatureChat, FeatureOCR, FeatureAnalysis, FeatureCategorization:
		return true
	}
	return false
}

// DisplayName returns a human-readable name for the feature
func (f Feature) DisplayName() string {
	switch f {
	case FeatureChat:
		return "AI Chat"
	case FeatureOCR:
		return "Document OCR"
	case FeatureAnalysis:
		return "Document Analysis"
	case FeatureCategorization:
		return "Auto Categorization"
	default:
		return string(f)
	}
}

// AllFeatures returns all valid features
func AllFeatures() []Feature {
	return []Feature{
		FeatureChat,
		FeatureOCR,
		FeatureAnalysis,
		FeatureCategorization,
	}
}

// ParseFeature parses a string into a Feature
func ParseFeature(s string) (Feature, error) {
	f := Feature(s)
	if !f.IsValid() {
		return "", fmt.Errorf("invalid feature: %s", s)
	}
	return f, nil
}

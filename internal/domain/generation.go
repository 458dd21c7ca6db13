package domain

import "strings"

// Provider enumerates the generation backends this service can dispatch to.
type Provider string

const (
	ProviderKling       Provider = "kling"
	ProviderReplicate   Provider = "replicate"
	ProviderFal         Provider = "fal"
	ProviderCatVTON     Provider = "cat-vton"
	ProviderPlaceholder Provider = "placeholder"
)

// ParseProvider resolves a free-form provider string to a supported image
// generation provider. Matching is case-insensitive. Only kling and replicate
// are valid targets for text-to-image generation; everything else is rejected.
func ParseProvider(s string) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(ProviderKling):
		return ProviderKling, nil
	case string(ProviderReplicate):
		return ProviderReplicate, nil
	default:
		return "", ErrUnsupportedProvider
	}
}

// GarmentType classifies a clothing item; it drives mask shape and the
// prompt template used for description generation.
type GarmentType string

const (
	GarmentUpper   GarmentType = "upper"
	GarmentLower   GarmentType = "lower"
	GarmentOverall GarmentType = "overall"
)

// NormalizeGarmentType sanitizes free-form input into a supported garment
// type. Unrecognized values fall back to upper rather than erroring, so the
// selection is total over all string inputs.
func NormalizeGarmentType(s string) GarmentType {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(GarmentLower):
		return GarmentLower
	case string(GarmentOverall):
		return GarmentOverall
	default:
		return GarmentUpper
	}
}

// TaskStatus is the terminal-or-pending state of a generation task.
type TaskStatus string

const (
	StatusSucceed TaskStatus = "succeed"
	StatusFailed  TaskStatus = "failed"
	StatusPending TaskStatus = "pending"
)

// Result is the provider-agnostic shape all adapters converge to. Once
// Status is StatusSucceed, Images is non-empty; a failed task surfaces as an
// error instead of a resting failed Result.
type Result struct {
	TaskID    string     `json:"task_id"`
	Images    []string   `json:"images"`
	Status    TaskStatus `json:"status"`
	CreatedAt int64      `json:"created_at"`
	UpdatedAt int64      `json:"updated_at"`
	Logs      []string   `json:"logs,omitempty"`
}

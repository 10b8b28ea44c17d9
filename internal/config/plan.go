package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// PlanInfo holds the detected Claude billing setup.
type PlanInfo struct {
	BillingType  string
	Subscription bool
}

// Label is a short description for report headers.
func (p PlanInfo) Label() string {
	switch {
	case p.Subscription:
		return "subscription (costs are estimates)"
	case p.BillingType != "":
		return p.BillingType
	default:
		return "unknown"
	}
}

// DetectPlan reads ~/.claude.json, falling back to <claudeDir>/.claude.json,
// to learn how the account is billed.
func DetectPlan(home, claudeDir string) PlanInfo {
	for _, path := range []string{
		filepath.Join(home, ".claude.json"),
		filepath.Join(claudeDir, ".claude.json"),
	} {
		data, err := os.ReadFile(path) //nolint:gosec // path is constructed from known dirs
		if err != nil {
			continue
		}
		var raw struct {
			BillingType string `json:"billingType"`
		}
		if err := json.Unmarshal(data, &raw); err != nil {
			continue
		}
		return PlanInfo{
			BillingType:  raw.BillingType,
			Subscription: raw.BillingType == "stripe_subscription",
		}
	}
	return PlanInfo{}
}

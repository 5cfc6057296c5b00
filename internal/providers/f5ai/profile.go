package f5ai

import (
	"fmt"

	"f5gate/config"
)

// Profile is one revision of the backend's request-shape rules. The two
// revisions disagree in several places and are never merged: a provider
// runs with exactly one.
type Profile struct {
	Name string

	// OSeriesSystemRole replaces the system role for o-series models.
	OSeriesSystemRole string

	// RewriteGPTSystem also moves gpt-family system messages to the user role.
	RewriteGPTSystem bool

	// ReasoningToolsExempt skips parallel_tool_calls=false for o1/o3/o4.
	ReasoningToolsExempt bool

	// StringTokenLimits sends max_tokens/max_completion_tokens as JSON strings.
	StringTokenLimits bool

	// OfficialEndpointOnly applies family and tool rules only when the base
	// URL is the official endpoint.
	OfficialEndpointOnly bool
}

var (
	// ProfileClassic rewrites system to user for o-series and gpt alike and
	// forces parallel_tool_calls=false whenever tools are present.
	ProfileClassic = Profile{
		Name:              config.ProfileClassic,
		OSeriesSystemRole: "user",
		RewriteGPTSystem:  true,
	}

	// ProfileDeveloper uses the developer role, leaves gpt messages alone and
	// only rewrites requests bound for the official endpoint.
	ProfileDeveloper = Profile{
		Name:                 config.ProfileDeveloper,
		OSeriesSystemRole:    "developer",
		ReasoningToolsExempt: true,
		StringTokenLimits:    true,
		OfficialEndpointOnly: true,
	}
)

// LookupProfile returns the profile registered under name. The empty name
// selects the classic profile.
func LookupProfile(name string) (Profile, error) {
	switch name {
	case "", config.ProfileClassic:
		return ProfileClassic, nil
	case config.ProfileDeveloper:
		return ProfileDeveloper, nil
	default:
		return Profile{}, fmt.Errorf("unknown f5ai profile %q", name)
	}
}

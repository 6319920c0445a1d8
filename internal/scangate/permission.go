package scangate

import "fmt"

// SettingsURL is the deep link into the system settings for this app.
const SettingsURL = "app-settings:"

// PromptAction is one choice offered when camera access is denied.
type PromptAction string

const (
	ActionCancel       PromptAction = "cancel"
	ActionOpenSettings PromptAction = "open-settings"
)

// PermissionPrompt is the recoverable error state shown instead of the camera.
type PermissionPrompt struct {
	Title   string
	Message string
	Actions []PromptAction
}

// OnPermissionDenied builds the prompt; the scanner stays idle until the
// operator picks an action.
func (g *Gate) OnPermissionDenied() PermissionPrompt {
	g.logger.Warn("SCAN", "Camera permission denied")
	return PermissionPrompt{
		Title:   "Camera Permission Required",
		Message: "Please grant camera permission to scan QR codes",
		Actions: []PromptAction{ActionCancel, ActionOpenSettings},
	}
}

// Resolve maps the operator's choice to what the host should do next: leave the
// screen, or open the given deep link.
func (p PermissionPrompt) Resolve(action PromptAction) (leave bool, deepLink string, err error) {
	switch action {
	case ActionCancel:
		return true, "", nil
	case ActionOpenSettings:
		return false, SettingsURL, nil
	default:
		return false, "", fmt.Errorf("unknown permission action %q", action)
	}
}

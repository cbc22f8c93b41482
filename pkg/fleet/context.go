package fleet

// ClusterContext identifies one cluster plus the operator's customizations
// for it. Name is the stable key from the kubeconfig; everything else
// survives kubeconfig re-syncs untouched.
type ClusterContext struct {
	// Name is the kubeconfig context name.
	Name string `json:"name"`
	// DisplayName overrides Name in displays.
	DisplayName string `json:"displayName,omitempty"`
	// ColorTag is a free-form accent label for displays.
	ColorTag string `json:"colorTag,omitempty"`
	// Favorite pins the context to the top of listings.
	Favorite bool `json:"favorite,omitempty"`
	// Hidden removes the context from displays and refresh sweeps without
	// forgetting it.
	Hidden bool `json:"hidden,omitempty"`
	// PresentInSource is false once the context disappears from the
	// kubeconfig. The entry is kept for history and only removed on
	// explicit request.
	PresentInSource bool `json:"presentInSource"`
}

// Title returns the display name, falling back to the context name.
func (c ClusterContext) Title() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}

	return c.Name
}

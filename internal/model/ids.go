package model

import "github.com/google/uuid"

// NewID mints an opaque string id for a Clip, Pattern or PluginNode. Ids are
// never parsed or given structure by the core — only required to be unique
// within their scope.
func NewID() string {
	return uuid.NewString()
}

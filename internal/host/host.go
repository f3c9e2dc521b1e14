// Package host models the game server runtime the bridge talks to: the
// registry of native types per namespace, the endpoints connected to it, and
// the version profile describing where things live.
package host

import (
	"errors"
	"fmt"
)

// Logical namespaces. The profile maps them to the qualified namespace of the
// running host version.
const (
	NamespaceServer = "nms"
	NamespaceCraft  = "obc"
)

var ErrUnknownVersion = errors.New("host: unknown runtime version")

// Channel is an endpoint's outbound network pipeline.
type Channel interface {
	WriteAndFlush(msg any) error
}

// Endpoint is a connected party that can receive packets.
type Endpoint interface {
	ID() string
}

// PipelineProvider is implemented by endpoints that hand out their pipeline
// directly instead of being walked with the profile's pipeline path.
type PipelineProvider interface {
	OutboundPipeline() (Channel, error)
}

// Runtime is one supported host version.
type Runtime interface {
	Version() string
	DefaultProfile() Profile
	// Install defines the version's native types in r.
	Install(r *Registry) error
	// NewEndpoint creates the host's player handle for a connected session
	// whose outbound pipeline is ch.
	NewEndpoint(id string, ch Channel) Endpoint
}

// Select returns the runtime whose Version equals version.
func Select(version string, runtimes ...Runtime) (Runtime, error) {
	for _, rt := range runtimes {
		if rt.Version() == version {
			return rt, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
}

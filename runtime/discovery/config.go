// Package discovery decodes the runtime topology configuration: which
// nodes exist, which transport plugins each node runs, and which services
// are pinned to which binder ids and announced under which interfaces.
//
// Grounded on mindroid/runtime/system/ServiceDiscovery.cpp, which parses
// the same schema with tinyxml2. No third-party XML library appears
// anywhere in the retrieved example pack, so this is decoded with the
// standard library's encoding/xml (see DESIGN.md's ambient-stack section).
package discovery

import (
	"encoding/xml"
	"fmt"
	"os"
)

// Configuration is the root <runtime> element: per-node plugin wiring plus
// the service directory used to pin binder ids and announce interfaces.
type Configuration struct {
	XMLName          xml.Name               `xml:"runtime"`
	Nodes            NodesSection           `xml:"nodes"`
	ServiceDiscovery ServiceDiscoverySection `xml:"serviceDiscovery"`
}

// NodesSection lists every node this configuration describes.
type NodesSection struct {
	Nodes []Node `xml:"node"`
}

// Node names the transport plugins a given node id runs.
type Node struct {
	ID      uint32   `xml:"id,attr"`
	Plugins []Plugin `xml:"plugin"`
}

// Plugin identifies the scheme and implementation class a node registers,
// plus the server endpoint it listens on (for transport plugins that
// accept inbound connections).
type Plugin struct {
	Scheme string `xml:"scheme,attr"`
	Class  string `xml:"class,attr"`
	Config string `xml:"config,attr,omitempty"`
	Server Server `xml:"server"`
}

// Server is the listen address a plugin binds, e.g. "tcp://0.0.0.0:1234".
type Server struct {
	URI string `xml:"uri,attr"`
}

// ServiceDiscoverySection lists the services each node hosts.
type ServiceDiscoverySection struct {
	Nodes []ServiceDiscoveryNode `xml:"node"`
}

// ServiceDiscoveryNode lists the services a given node id hosts.
type ServiceDiscoveryNode struct {
	ID       uint32    `xml:"id,attr"`
	Services []Service `xml:"service"`
}

// Service pins a binder id to a name and lists the interfaces it
// implements, so remote nodes can resolve <node>.<id> without a discovery
// round-trip.
type Service struct {
	ID            uint64         `xml:"id,attr"`
	Name          string         `xml:"name,attr"`
	Announcements []Announcement `xml:"announcement"`
}

// Announcement records one interface a Service implements.
type Announcement struct {
	InterfaceDescriptor string `xml:"interfaceDescriptor,attr"`
}

// Read decodes and validates the configuration at path.
func Read(path string) (*Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("discovery: reading %s: %w", path, err)
	}

	var cfg Configuration
	if err := xml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("discovery: parsing %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("discovery: %s: %w", path, err)
	}

	return &cfg, nil
}

func (c *Configuration) validate() error {
	for _, n := range c.Nodes.Nodes {
		if n.ID == 0 {
			return fmt.Errorf("node id must be nonzero")
		}
		for _, p := range n.Plugins {
			if p.Scheme == "" {
				return fmt.Errorf("node %d: plugin scheme must not be empty", n.ID)
			}
			if p.Class == "" {
				return fmt.Errorf("node %d: plugin class must not be empty", n.ID)
			}
		}
	}
	for _, n := range c.ServiceDiscovery.Nodes {
		if n.ID == 0 {
			return fmt.Errorf("serviceDiscovery node id must be nonzero")
		}
	}
	return nil
}

// NodePlugins returns the plugins configured for nodeID, or nil if the
// node is not described by this configuration.
func (c *Configuration) NodePlugins(nodeID uint32) []Plugin {
	for _, n := range c.Nodes.Nodes {
		if n.ID == nodeID {
			return n.Plugins
		}
	}
	return nil
}

// PluginForScheme returns the plugin configured for nodeID under scheme.
func (c *Configuration) PluginForScheme(nodeID uint32, scheme string) (Plugin, bool) {
	for _, p := range c.NodePlugins(nodeID) {
		if p.Scheme == scheme {
			return p, true
		}
	}
	return Plugin{}, false
}

// Services returns the services configured for nodeID.
func (c *Configuration) Services(nodeID uint32) []Service {
	for _, n := range c.ServiceDiscovery.Nodes {
		if n.ID == nodeID {
			return n.Services
		}
	}
	return nil
}

// ServiceByName finds the first service configured under name on any node,
// returning it, the node id it was found on, and whether it was found at
// all — used by the
// Runtime to reassign a locally-registered service's binder id to the id
// pinned in the configuration.
func (c *Configuration) ServiceByName(name string) (nodeID uint32, service Service, ok bool) {
	for _, n := range c.ServiceDiscovery.Nodes {
		for _, s := range n.Services {
			if s.Name == name {
				return n.ID, s, true
			}
		}
	}
	return 0, Service{}, false
}

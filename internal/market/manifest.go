package market

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// SDL document constants. The single managed workload is always exposed
// under the "app" service bound to the "akash" placement group, matching
// the manifest contract the marketplace consumes.
const (
	serviceName   = "app"
	placementName = "akash"
)

// Spec is the caller-facing resource request for a workload.
type Spec struct {
	Image   string
	CPU     float64
	Memory  string
	Storage string
	Ports   []string
}

// Validate checks the spec before a manifest is built from it
func (s Spec) Validate() error {
	if s.Image == "" {
		return fmt.Errorf("image is required")
	}
	if s.CPU <= 0 {
		return fmt.Errorf("cpu must be positive, got %v", s.CPU)
	}
	if s.Memory == "" {
		return fmt.Errorf("memory size is required")
	}
	if s.Storage == "" {
		return fmt.Errorf("storage size is required")
	}
	if len(s.Ports) == 0 {
		return fmt.Errorf("at least one port is required")
	}
	for _, p := range s.Ports {
		n, err := strconv.Atoi(p)
		if err != nil || n <= 0 || n > 65535 {
			return fmt.Errorf("invalid port %q", p)
		}
	}
	return nil
}

// Manifest is the SDL document submitted to the marketplace.
type Manifest struct {
	Version    string                                  `yaml:"version"`
	Services   map[string]Service                      `yaml:"services"`
	Profiles   Profiles                                `yaml:"profiles"`
	Deployment map[string]map[string]DeploymentBinding `yaml:"deployment"`
}

// Service describes a workload image and its network exposure.
type Service struct {
	Image  string   `yaml:"image"`
	Count  int      `yaml:"count"`
	Expose []Expose `yaml:"expose"`
}

// Expose maps a container port to a globally accessible one.
type Expose struct {
	Port int        `yaml:"port"`
	As   int        `yaml:"as"`
	To   []ExposeTo `yaml:"to"`
}

// ExposeTo flags an exposure as globally reachable.
type ExposeTo struct {
	Global bool `yaml:"global"`
}

// Profiles holds compute and placement profiles.
type Profiles struct {
	Compute   map[string]ComputeProfile   `yaml:"compute"`
	Placement map[string]PlacementProfile `yaml:"placement"`
}

// ComputeProfile describes per-service compute resources.
type ComputeProfile struct {
	Resources Resources `yaml:"resources"`
}

// Resources is the cpu/memory/storage triple of a compute profile.
type Resources struct {
	CPU     CPUResource    `yaml:"cpu"`
	Memory  SizeResource   `yaml:"memory"`
	Storage []SizeResource `yaml:"storage"`
}

// CPUResource is a compute-unit amount.
type CPUResource struct {
	Units float64 `yaml:"units"`
}

// SizeResource is a size string such as "512Mi".
type SizeResource struct {
	Size string `yaml:"size"`
}

// PlacementProfile carries per-service pricing for a placement group.
type PlacementProfile struct {
	Pricing map[string]Price `yaml:"pricing"`
}

// Price is a denomination and unit amount.
type Price struct {
	Denom  string `yaml:"denom"`
	Amount int64  `yaml:"amount"`
}

// DeploymentBinding binds a service to a compute profile.
type DeploymentBinding struct {
	Profile string `yaml:"profile"`
	Count   int    `yaml:"count"`
}

// NewManifest builds an SDL manifest for a single-service workload
func NewManifest(spec Spec, denom string, amount int64) (*Manifest, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	expose := make([]Expose, 0, len(spec.Ports))
	for _, p := range spec.Ports {
		port, _ := strconv.Atoi(p)
		expose = append(expose, Expose{
			Port: port,
			As:   port,
			To:   []ExposeTo{{Global: true}},
		})
	}

	return &Manifest{
		Version: "2.0",
		Services: map[string]Service{
			serviceName: {
				Image:  spec.Image,
				Count:  1,
				Expose: expose,
			},
		},
		Profiles: Profiles{
			Compute: map[string]ComputeProfile{
				serviceName: {
					Resources: Resources{
						CPU:     CPUResource{Units: spec.CPU},
						Memory:  SizeResource{Size: spec.Memory},
						Storage: []SizeResource{{Size: spec.Storage}},
					},
				},
			},
			Placement: map[string]PlacementProfile{
				placementName: {
					Pricing: map[string]Price{
						serviceName: {Denom: denom, Amount: amount},
					},
				},
			},
		},
		Deployment: map[string]map[string]DeploymentBinding{
			serviceName: {
				placementName: {Profile: serviceName, Count: 1},
			},
		},
	}, nil
}

// Marshal renders the manifest as YAML
func (m *Manifest) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	return data, nil
}

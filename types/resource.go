package types

// Canonical resource type taxonomy. Adapters map provider-native types
// onto these strings; anything unrecognized becomes TypeOther.
const (
	TypeVirtualMachine     = "virtual_machine"
	TypeContainerCluster   = "container_cluster"
	TypeServerlessFunction = "serverless_function"
	TypeDatabase           = "database"
	TypeStorageAccount     = "storage_account"
	TypeObjectStorage      = "object_storage"
	TypeDisk               = "disk"
	TypeQueue              = "queue"
	TypeVirtualNetwork     = "virtual_network"
	TypeSubnet             = "subnet"
	TypeLoadBalancer       = "load_balancer"
	TypeTargetGroup        = "target_group"
	TypeSecurityGroup      = "security_group"
	TypeNetworkInterface   = "network_interface"
	TypeResourceGroup      = "resource_group"
	TypeOther              = "other"
)

// Supported providers.
const (
	ProviderAWS   = "aws"
	ProviderAzure = "azure"
	ProviderGCP   = "gcp"
)

// CostEstimate is a provider-supplied cost figure attached to a resource.
// Kartta never computes these itself.
type CostEstimate struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// Resource is the canonical, provider-agnostic shape of a cloud resource.
// Adapters build one at the provider boundary; provider-native shapes never
// leak past them. A Resource is owned by the snapshot that created it and
// must not be mutated after the snapshot is frozen.
type Resource struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Type           string            `json:"type"`
	Provider       string            `json:"provider"`
	Region         string            `json:"region"`
	Scope          string            `json:"scope,omitempty"` // resource group, account or project
	Properties     map[string]string `json:"properties,omitempty"`
	Tags           map[string]string `json:"tags,omitempty"`
	Cost           *CostEstimate     `json:"cost,omitempty"`
	DependencyRefs []string          `json:"dependency_refs,omitempty"`
}

// Matches checks if the resource passes all filter criteria.
func (r *Resource) Matches(f Filter) bool {
	return r.matchesBasicFields(f) && r.matchesTypes(f) && r.matchesTags(f)
}

func (r *Resource) matchesBasicFields(f Filter) bool {
	if f.Provider != "" && r.Provider != f.Provider {
		return false
	}
	if f.Region != "" && r.Region != f.Region {
		return false
	}
	if f.Scope != "" && r.Scope != f.Scope {
		return false
	}
	return true
}

func (r *Resource) matchesTypes(f Filter) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if r.Type == t {
			return true
		}
	}
	return false
}

func (r *Resource) matchesTags(f Filter) bool {
	for key, value := range f.Tags {
		if r.Tags[key] != value {
			return false
		}
	}
	return true
}

// Filter narrows a resource set after discovery.
type Filter struct {
	Provider string            `json:"provider,omitempty"`
	Region   string            `json:"region,omitempty"`
	Scope    string            `json:"scope,omitempty"`
	Types    []string          `json:"types,omitempty"`
	Tags     map[string]string `json:"tags,omitempty"`
}

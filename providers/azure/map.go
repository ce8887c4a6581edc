package azure

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

// armTypeTaxonomy normalizes ARM resource types into the canonical
// taxonomy. Unlisted types fall through as generic resources.
var armTypeTaxonomy = map[string]string{
	"microsoft.compute/virtualmachines":        types.TypeVirtualMachine,
	"microsoft.compute/disks":                  types.TypeDisk,
	"microsoft.network/virtualnetworks":        types.TypeVirtualNetwork,
	"microsoft.network/virtualnetworks/subnets": types.TypeSubnet,
	"microsoft.network/networksecuritygroups":  types.TypeSecurityGroup,
	"microsoft.network/networkinterfaces":      types.TypeNetworkInterface,
	"microsoft.network/loadbalancers":          types.TypeLoadBalancer,
	"microsoft.storage/storageaccounts":        types.TypeStorageAccount,
	"microsoft.sql/servers":                    types.TypeDatabase,
	"microsoft.sql/servers/databases":          types.TypeDatabase,
	"microsoft.dbforpostgresql/flexibleservers": types.TypeDatabase,
	"microsoft.web/sites":                      types.TypeServerlessFunction,
	"microsoft.servicebus/namespaces/queues":   types.TypeQueue,
	"microsoft.resources/resourcegroups":       types.TypeResourceGroup,
}

func (a *Adapter) mapResource(generic *armresources.GenericResourceExpanded, fallbackRegion string) (types.Resource, *providers.MappingError) {
	if generic == nil || generic.ID == nil || *generic.ID == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderAzure,
			Reason:   "resource without ID",
		}
	}
	id := *generic.ID

	name := deref(generic.Name)
	if name == "" {
		name = lastSegment(id)
	}

	armType := deref(generic.Type)
	canonical, ok := armTypeTaxonomy[strings.ToLower(armType)]
	if !ok {
		canonical = types.TypeOther
	}

	region := deref(generic.Location)
	if region == "" {
		region = fallbackRegion
	}

	tags := make(map[string]string, len(generic.Tags))
	for k, v := range generic.Tags {
		if v != nil {
			tags[k] = *v
		}
	}
	if len(tags) == 0 {
		tags = nil
	}

	properties := map[string]string{}
	if armType != "" {
		properties["arm_type"] = armType
	}
	if generic.Kind != nil {
		properties["kind"] = *generic.Kind
	}
	if generic.ProvisioningState != nil {
		properties["provisioning_state"] = *generic.ProvisioningState
	}

	refs := collectRefs(generic.Properties, id)
	if managed := deref(generic.ManagedBy); managed != "" {
		refs = append(refs, managed)
	}

	return types.Resource{
		ID:             id,
		Name:           name,
		Type:           canonical,
		Provider:       types.ProviderAzure,
		Region:         region,
		Scope:          resourceGroupOf(id),
		Properties:     properties,
		Tags:           tags,
		DependencyRefs: dedupe(refs),
	}, nil
}

// collectRefs walks the untyped ARM properties payload for values that
// look like resource IDs under keys ending in "id". Self references are
// dropped.
func collectRefs(properties any, selfID string) []string {
	var refs []string
	walkProperties(properties, "", func(key string, value string) {
		if !strings.HasSuffix(strings.ToLower(key), "id") {
			return
		}
		if !strings.HasPrefix(strings.ToLower(value), "/subscriptions/") {
			return
		}
		if strings.EqualFold(value, selfID) {
			return
		}
		refs = append(refs, value)
	})
	return refs
}

func walkProperties(node any, key string, visit func(key, value string)) {
	switch v := node.(type) {
	case map[string]any:
		for k, child := range v {
			walkProperties(child, k, visit)
		}
	case []any:
		for _, child := range v {
			walkProperties(child, key, visit)
		}
	case string:
		if key != "" {
			visit(key, v)
		}
	}
}

// resourceGroupOf extracts the resource group segment from an ARM ID:
// /subscriptions/<sub>/resourceGroups/<group>/...
func resourceGroupOf(id string) string {
	segments := strings.Split(strings.Trim(id, "/"), "/")
	for i := 0; i+1 < len(segments); i++ {
		if strings.EqualFold(segments[i], "resourcegroups") {
			return segments[i+1]
		}
	}
	return ""
}

func lastSegment(id string) string {
	trimmed := strings.TrimRight(id, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		return trimmed[idx+1:]
	}
	return trimmed
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func dedupe(refs []string) []string {
	if len(refs) < 2 {
		return refs
	}
	seen := make(map[string]bool, len(refs))
	out := refs[:0]
	for _, ref := range refs {
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
	}
	return out
}

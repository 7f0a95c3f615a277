package capability

import (
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/agentfleet/controlplane/types"
)

// Registry is the default implementation of the capability registry. It
// maintains three indices: capability id to versioned record, category to
// set of ids, and tag to set of ids.
type Registry struct {
	mu sync.RWMutex

	records    map[string]*types.VersionedCapabilityRecord
	byCategory map[string]map[string]struct{}
	byTag      map[string]map[string]struct{}

	logger *zap.Logger
}

// New creates an empty capability registry.
func New(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		records:    make(map[string]*types.VersionedCapabilityRecord),
		byCategory: make(map[string]map[string]struct{}),
		byTag:      make(map[string]map[string]struct{}),
		logger:     logger.With(zap.String("component", "capability_registry")),
	}
}

// Register inserts or merges a capability advertised by agentID. If the
// capability id is new, a versioned record is created. Otherwise the
// version is added to the sorted version set, latest_version is
// recomputed by semver order, and agentID joins the provider set. When the
// same version is re-registered with a differing descriptor, the first
// registration wins and the conflict is logged (ErrCapabilityVersionConflict
// is a warning-only condition, never returned as an error).
func (r *Registry) Register(agentID types.AgentID, cap types.CapabilityDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.records[cap.ID]
	if !exists {
		rec = &types.VersionedCapabilityRecord{
			Descriptor: cap,
			Versions:   []string{cap.Version},
			Providers:  map[types.AgentID]struct{}{agentID: {}},
		}
		rec.LatestVersion = cap.Version
		r.records[cap.ID] = rec
		r.indexCapability(cap.ID, cap.Category, cap.Tags)
		return
	}

	rec.Providers[agentID] = struct{}{}
	rec.Deprecated = false

	if hasVersion(rec.Versions, cap.Version) {
		if !descriptorsEqual(rec.Descriptor, cap) {
			r.logger.Warn("capability version conflict: first registration wins",
				zap.String("capability_id", cap.ID),
				zap.String("version", cap.Version),
				zap.String("agent_id", string(agentID)),
			)
		}
		return
	}

	rec.Versions = append(rec.Versions, cap.Version)
	sort.Slice(rec.Versions, func(i, j int) bool { return compareSemver(rec.Versions[i], rec.Versions[j]) < 0 })
	rec.LatestVersion = maxVersion(rec.Versions)
	if rec.LatestVersion == cap.Version {
		rec.Descriptor = cap
	}
	r.indexCapability(cap.ID, cap.Category, cap.Tags)
}

func (r *Registry) indexCapability(id, category string, tags []string) {
	if category != "" {
		if r.byCategory[category] == nil {
			r.byCategory[category] = make(map[string]struct{})
		}
		r.byCategory[category][id] = struct{}{}
	}
	for _, tag := range tags {
		if r.byTag[tag] == nil {
			r.byTag[tag] = make(map[string]struct{})
		}
		r.byTag[tag][id] = struct{}{}
	}
}

// Get returns the versioned record for capabilityID, or false if unknown.
func (r *Registry) Get(capabilityID string) (types.VersionedCapabilityRecord, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[capabilityID]
	if !ok {
		return types.VersionedCapabilityRecord{}, false
	}
	return cloneRecord(rec), true
}

// ProvidersOf returns the set of agent ids currently providing any version
// of capabilityID.
func (r *Registry) ProvidersOf(capabilityID string) map[types.AgentID]struct{} {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[capabilityID]
	if !ok {
		return nil
	}
	out := make(map[types.AgentID]struct{}, len(rec.Providers))
	for id := range rec.Providers {
		out[id] = struct{}{}
	}
	return out
}

// SearchQuery filters the Search operation.
type SearchQuery struct {
	Category string
	Tags     []string
	Query    string
	Limit    int
	Offset   int
}

// SearchResult is the paginated outcome of Search.
type SearchResult struct {
	Capabilities []types.VersionedCapabilityRecord
	Total        int
}

// Search filters capabilities by category/tags/substring query (combined
// with AND), sorts by latest_version descending then name ascending, and
// paginates after sorting.
func (r *Registry) Search(q SearchQuery) SearchResult {
	r.mu.RLock()
	defer r.mu.RUnlock()

	candidateIDs := r.candidateIDs(q)

	matches := make([]*types.VersionedCapabilityRecord, 0, len(candidateIDs))
	for id := range candidateIDs {
		rec, ok := r.records[id]
		if !ok {
			continue
		}
		if q.Query != "" && !matchesQuery(rec.Descriptor, q.Query) {
			continue
		}
		matches = append(matches, rec)
	}

	sort.Slice(matches, func(i, j int) bool {
		cmp := compareSemver(matches[i].LatestVersion, matches[j].LatestVersion)
		if cmp != 0 {
			return cmp > 0
		}
		return matches[i].Descriptor.Name < matches[j].Descriptor.Name
	})

	total := len(matches)
	out := make([]types.VersionedCapabilityRecord, 0, len(matches))
	for i, m := range matches {
		if i < q.Offset {
			continue
		}
		if q.Limit > 0 && len(out) >= q.Limit {
			break
		}
		out = append(out, cloneRecord(m))
	}

	return SearchResult{Capabilities: out, Total: total}
}

// candidateIDs intersects the category/tag indices with the full id set
// when a filter is given, and returns every known id otherwise.
func (r *Registry) candidateIDs(q SearchQuery) map[string]struct{} {
	var sets []map[string]struct{}
	if q.Category != "" {
		sets = append(sets, r.byCategory[q.Category])
	}
	for _, tag := range q.Tags {
		sets = append(sets, r.byTag[tag])
	}

	if len(sets) == 0 {
		all := make(map[string]struct{}, len(r.records))
		for id := range r.records {
			all[id] = struct{}{}
		}
		return all
	}

	result := sets[0]
	for _, s := range sets[1:] {
		result = intersect(result, s)
	}
	// copy to avoid aliasing an index map
	out := make(map[string]struct{}, len(result))
	for id := range result {
		out[id] = struct{}{}
	}
	return out
}

func intersect(a, b map[string]struct{}) map[string]struct{} {
	out := make(map[string]struct{})
	for id := range a {
		if _, ok := b[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out
}

func matchesQuery(d types.CapabilityDescriptor, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(d.Name), q) || strings.Contains(strings.ToLower(d.Description), q)
}

// Deregister removes agentID from every capability's provider set.
// Capabilities whose provider set becomes empty are kept for history and
// marked deprecated.
func (r *Registry) Deregister(agentID types.AgentID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rec := range r.records {
		delete(rec.Providers, agentID)
		if len(rec.Providers) == 0 {
			rec.Deprecated = true
		}
	}
}

func hasVersion(versions []string, v string) bool {
	for _, existing := range versions {
		if existing == v {
			return true
		}
	}
	return false
}

func descriptorsEqual(a, b types.CapabilityDescriptor) bool {
	return a.Name == b.Name && a.Description == b.Description && a.Category == b.Category && a.ReturnType == b.ReturnType
}

func cloneRecord(rec *types.VersionedCapabilityRecord) types.VersionedCapabilityRecord {
	clone := *rec
	clone.Versions = append([]string(nil), rec.Versions...)
	clone.Providers = make(map[types.AgentID]struct{}, len(rec.Providers))
	for id := range rec.Providers {
		clone.Providers[id] = struct{}{}
	}
	return clone
}

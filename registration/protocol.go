package registration

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/agentfleet/controlplane/types"
)

// knownProtocols is the set of endpoint protocol identifiers Validate accepts.
var knownProtocols = map[string]bool{
	"http":  true,
	"https": true,
	"grpc":  true,
}

// knownAuthTypes is the set of authentication types Validate accepts.
var knownAuthTypes = map[types.AuthType]bool{
	types.AuthNone:   true,
	types.AuthBasic:  true,
	types.AuthBearer: true,
	types.AuthOAuth2: true,
	types.AuthMTLS:   true,
}

// Request is the inbound payload for agent registration.
type Request struct {
	AgentID       string                        `json:"agent_id"`
	Name          string                        `json:"name"`
	Version       string                        `json:"version,omitempty"`
	Description   string                        `json:"description,omitempty"`
	Author        string                        `json:"author,omitempty"`
	License       string                        `json:"license,omitempty"`
	Repository    string                        `json:"repository,omitempty"`
	Documentation string                        `json:"documentation,omitempty"`
	Tags          []string                      `json:"tags,omitempty"`
	Resources     types.ResourceRequirements    `json:"resources,omitempty"`
	Dependencies  []string                      `json:"dependencies,omitempty"`
	Capabilities  []types.CapabilityDescriptor  `json:"capabilities"`
	Endpoint      types.Endpoint                `json:"endpoint"`
	// Policy is optional; zero-value fields are filled in by ToRecord.
	Policy types.OperationalPolicy `json:"policy,omitempty"`
}

// ValidationResult is the outcome of Validate.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks a Request against the registration rules: a
// non-empty id, a non-empty name, at least one capability (each with a
// non-empty id/name/version), a parseable endpoint URL, a known protocol,
// and a known authentication type.
func Validate(req *Request) ValidationResult {
	var errs []string

	if strings.TrimSpace(req.AgentID) == "" {
		errs = append(errs, "agent id must not be empty")
	}
	if strings.TrimSpace(req.Name) == "" {
		errs = append(errs, "name must not be empty")
	}
	if len(req.Capabilities) == 0 {
		errs = append(errs, "at least one capability is required")
	}
	for i, cap := range req.Capabilities {
		if strings.TrimSpace(cap.ID) == "" {
			errs = append(errs, fmt.Sprintf("capability[%d]: id must not be empty", i))
		}
		if strings.TrimSpace(cap.Name) == "" {
			errs = append(errs, fmt.Sprintf("capability[%d]: name must not be empty", i))
		}
		if strings.TrimSpace(cap.Version) == "" {
			errs = append(errs, fmt.Sprintf("capability[%d]: version must not be empty", i))
		}
	}

	if strings.TrimSpace(req.Endpoint.URL) == "" {
		errs = append(errs, "endpoint url must not be empty")
	} else if u, err := url.Parse(req.Endpoint.URL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, "endpoint url is not a valid absolute URL")
	}

	if !knownProtocols[req.Endpoint.Protocol] {
		errs = append(errs, fmt.Sprintf("unknown protocol %q", req.Endpoint.Protocol))
	}

	authType := req.Endpoint.Auth.Type
	if authType == "" {
		authType = types.AuthNone
	}
	if !knownAuthTypes[authType] {
		errs = append(errs, fmt.Sprintf("unknown authentication type %q", req.Endpoint.Auth.Type))
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// The default* constants below are the defaults ToRecord applies to
// zero-valued policy fields.
const (
	defaultLBWeight         = 1
	defaultLBTimeoutMS      = 30000
	defaultScalingMin       = 1
	defaultScalingMax       = 10
	defaultScalingCPUTarget = 70
	defaultScalingMemTarget = 80
	defaultIsolationNS      = "default"
)

// ToRecord materializes a validated Request into a types.AgentRecord,
// filling in the operational-policy and health defaults.
// Callers should run Validate first; ToRecord does not re-validate.
func ToRecord(req *Request) *types.AgentRecord {
	now := time.Now()

	policy := req.Policy
	if policy.LoadBalancing.Weight == 0 {
		policy.LoadBalancing.Weight = defaultLBWeight
	}
	if policy.LoadBalancing.TimeoutMS == 0 {
		policy.LoadBalancing.TimeoutMS = defaultLBTimeoutMS
	}
	if policy.Scaling.MinInstances == 0 {
		policy.Scaling.MinInstances = defaultScalingMin
	}
	if policy.Scaling.MaxInstances == 0 {
		policy.Scaling.MaxInstances = defaultScalingMax
	}
	if policy.Scaling.TargetCPUPercent == 0 {
		policy.Scaling.TargetCPUPercent = defaultScalingCPUTarget
	}
	if policy.Scaling.TargetMemPercent == 0 {
		policy.Scaling.TargetMemPercent = defaultScalingMemTarget
	}
	if policy.Isolation.Namespace == "" {
		policy.Isolation.Namespace = defaultIsolationNS
	}

	capabilities := make([]types.CapabilityDescriptor, len(req.Capabilities))
	copy(capabilities, req.Capabilities)

	return &types.AgentRecord{
		AgentID: types.AgentID(req.AgentID),
		Metadata: types.Metadata{
			Name:          req.Name,
			Version:       req.Version,
			Description:   req.Description,
			Author:        req.Author,
			License:       req.License,
			Repository:    req.Repository,
			Documentation: req.Documentation,
			Tags:          append([]string(nil), req.Tags...),
			Resources:     req.Resources,
			Dependencies:  append([]string(nil), req.Dependencies...),
			CreatedAt:     now,
			UpdatedAt:     now,
			Capabilities:  capabilities,
		},
		Endpoint: req.Endpoint,
		Policy:   policy,
		Health: types.Health{
			Status:     types.HealthUnknown,
			ErrorCount: 0,
		},
	}
}

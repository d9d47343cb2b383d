package routing

import (
	"strings"
)

// DecisionKind classifies a routing decision
type DecisionKind int

const (
	// PassThrough means no tenant matched; the caller serves the request
	// as-is, typically ending in not-found handling downstream.
	PassThrough DecisionKind = iota
	// SystemRoute means the path belongs to the platform itself and must
	// never be tenant-resolved.
	SystemRoute
	// TenantRoute means the request targets one tenant's page and Path
	// holds the rewritten internal form.
	TenantRoute
)

// Decision is the outcome of resolving one inbound request
type Decision struct {
	Kind DecisionKind
	// Slug is the resolved tenant slug, set for TenantRoute only.
	Slug string
	// Path is the rewritten internal path, set for TenantRoute only.
	Path string
}

// Config holds the resolver's inputs. All of them are configuration, not
// compiled-in constants.
type Config struct {
	// RootDomains are the platform's bare domains. A host of the form
	// <slug>.<root-domain> implies a tenant.
	RootDomains []string
	// ReservedPrefixes are path prefixes always served by the platform
	// itself (console, auth, API, the site namespace, account, assets).
	ReservedPrefixes []string
	// SitePrefix is the internal tenant-page namespace, e.g. "/sites".
	SitePrefix string
	// KnownSlugs is the registered tenant slug set. Only members may be
	// inferred from a path's first segment.
	KnownSlugs map[string]bool
}

// Resolve maps (host, path) to exactly one routing decision. Pure and
// side-effect free; safe for unlimited parallel invocation.
//
// Reserved prefixes win over any host-based inference so a registered slug
// can never shadow system functionality.
func Resolve(host, path string, cfg Config) Decision {
	if path == "" {
		path = "/"
	}

	for _, prefix := range cfg.ReservedPrefixes {
		if pathHasPrefix(path, prefix) {
			return Decision{Kind: SystemRoute}
		}
	}

	if slug, ok := hostSlug(host, cfg.RootDomains); ok {
		return tenantDecision(slug, path, cfg.SitePrefix)
	}

	if slug, rest, ok := pathSlug(path, cfg.KnownSlugs); ok {
		return tenantDecision(slug, rest, cfg.SitePrefix)
	}

	return Decision{Kind: PassThrough}
}

// hostSlug derives a tenant slug from the hostname. The slug is the label
// immediately preceding a recognized root-domain suffix; empty and "www"
// mean no tenant, as does the bare root domain itself.
func hostSlug(host string, rootDomains []string) (string, bool) {
	host = strings.ToLower(host)
	if i := strings.LastIndex(host, ":"); i >= 0 {
		host = host[:i]
	}

	for _, domain := range rootDomains {
		if host == domain || host == "www."+domain {
			return "", false
		}
		if !strings.HasSuffix(host, "."+domain) {
			continue
		}
		rest := strings.TrimSuffix(host, "."+domain)
		labels := strings.Split(rest, ".")
		slug := labels[len(labels)-1]
		if slug == "" || slug == "www" {
			return "", false
		}
		return slug, true
	}

	return "", false
}

// pathSlug derives a tenant slug from the first path segment. Arbitrary
// segments are rejected; only registered slugs qualify.
func pathSlug(path string, known map[string]bool) (slug, rest string, ok bool) {
	trimmed := strings.TrimPrefix(path, "/")
	if trimmed == "" {
		return "", "", false
	}

	seg := trimmed
	rest = ""
	if i := strings.Index(trimmed, "/"); i >= 0 {
		seg = trimmed[:i]
		rest = trimmed[i:]
	}

	if !known[seg] {
		return "", "", false
	}
	return seg, rest, true
}

func tenantDecision(slug, remainder, sitePrefix string) Decision {
	if remainder == "/" {
		remainder = ""
	}
	return Decision{
		Kind: TenantRoute,
		Slug: slug,
		Path: sitePrefix + "/" + slug + remainder,
	}
}

func pathHasPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	// "/admin" must not reserve "/administrators".
	return len(path) == len(prefix) || path[len(prefix)] == '/' || strings.HasSuffix(prefix, "/")
}

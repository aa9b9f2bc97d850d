package provider

import "strings"

// nativeDomainMarker routes a base URL to the native wire protocol. The
// containment test is the entire dispatch decision; there is no
// capability probing.
const nativeDomainMarker = "googleapis.com"

// Kind tags which of the two wire protocols a base URL speaks. It is
// determined once per call from settings and carried explicitly, never
// re-inferred from response shapes.
type Kind string

const (
	KindNative     Kind = "native"
	KindCompatible Kind = "compatible"
)

// KindFor classifies an already-normalized base URL.
func KindFor(baseURL string) Kind {
	if strings.Contains(baseURL, nativeDomainMarker) {
		return KindNative
	}
	return KindCompatible
}

// NormalizeBaseURL cleans up a user-pasted endpoint URL:
// whitespace trimmed, trailing slashes stripped, and a mistakenly pasted
// /v1beta suffix removed so both bare domains and over-qualified URLs
// work. Idempotent.
func NormalizeBaseURL(raw string) string {
	cleaned := strings.TrimSpace(raw)
	// Strip to a fixed point so stacked suffixes ("/v1beta/v1beta",
	// "/v1beta//") cannot survive a single pass.
	for {
		next := strings.TrimRight(cleaned, "/")
		next = strings.TrimSuffix(next, "/v1beta")
		next = strings.TrimRight(next, "/")
		if next == cleaned {
			return cleaned
		}
		cleaned = next
	}
}

// compatibleBase ensures the base path ends with /v1 before the
// endpoint suffix is appended, without doubling it when the user
// already supplied one.
func compatibleBase(baseURL string) string {
	if strings.HasSuffix(baseURL, "/v1") {
		return baseURL
	}
	return baseURL + "/v1"
}

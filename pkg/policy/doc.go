// Package policy provides the object model for the ten99policy API.
//
// # Overview
//
// Every document returned by the API becomes an Object: an ordered,
// change-tracking field store. Objects whose "object" discriminator names a
// registered ResourceType (contractors, jobs, policies, quotes and so on)
// become APIResource values that know their URL and can Refresh, Save and
// Delete themselves. Collections become ListObject pages. Documents of unknown
// types stay generic Objects. The pkg/policyclient package wires a Requestor
// into these values; most consumers start there.
//
// # Change tracking
//
// Set marks a field dirty. Serialize produces the payload sent on update: only
// dirty fields, nested objects that changed, and the deletion sentinel ""
// for fields set to nil or map keys that disappeared:
//
//	contractor.Set("first_name", "Janet")
//	contractor.Set("phone", nil)
//	contractor.Serialize(nil) // {"first_name": "Janet", "phone": ""}
//
// Setting a field to the empty string is rejected with ErrInvalidValue. After
// a full refresh, fields the server no longer returns are remembered, and
// reading one yields a NotFoundError with a hint explaining where it went.
//
// # Errors
//
// Non-2xx responses surface as *ResponseError wrapping the API's *APIError
// document. IsNotFound, IsUnauthorized and IsRateLimited branch on common
// statuses.
//
// # Caching
//
// Cache is implemented by MemoryCache, NATSKVCache and NoOpCache. Configure one
// through CacheConfig on Config; GET responses are then cached and revalidated
// with ETags.
package policy

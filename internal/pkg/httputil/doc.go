// Package httputil holds the JSON request/response helpers shared by the
// lead-console API handlers.
//
// Handlers write every response through these helpers rather than touching
// http.ResponseWriter directly, so the dashboard always sees the same
// envelope: payloads as plain JSON, failures as {"error": ...}. Import
// endpoints in particular return large log arrays; the helpers keep those
// responses consistent with the small CRUD ones.
package httputil

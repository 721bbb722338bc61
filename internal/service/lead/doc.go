// Package lead implements lead lifecycle management.
//
// The service layer contains the business logic for creating, listing,
// updating, and deleting leads. It depends on the repository interface
// defined in this package and should never import from handler code.
//
// The manual creation path applies a default stage ("Em análise") when the
// field is blank; the bulk import path does not. That asymmetry is inherited
// from the product's original behavior and is preserved deliberately.
//
// Repository implementations live in repository/postgres/.
package lead

// Package expr provides CEL (Common Expression Language) functionality for
// evaluating expressions against cluster contexts and statuses.
//
// Expressions are used for:
//   - Context include filters (which kubeconfig contexts to monitor)
//   - Notification rules (which status transitions to report)
//
// The variables available to an expression are declared by the caller when
// the environment is created.
package expr

// Package kube talks to Kubernetes clusters through the kubectl binary.
//
// The [Client] is a thin façade over pkg/execs: it locates kubectl (an
// explicit path wins over discovery), injects --context instead of mutating
// kubeconfig state, and decodes the JSON output of a small set of fixed
// queries into typed structures. Failure classification is load-bearing
// here. A missing binary, a failed command, undecodable output, and an
// absent Flux installation are four distinct outcomes, and callers branch
// on them with errors.Is.
package kube

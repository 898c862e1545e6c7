// Package integration contains the provider orchestration primitives shared by
// every external-service domain (payment, shipping, marketplace, accounting,
// supplier).
//
// Key concepts:
//   - Provider: identity and configuration predicate every backend exposes
//   - Registry: explicitly constructed, per-domain map of named providers with
//     configured-subset and default resolution
//   - Domain: closed set of integration domains
//
// Design Pattern: Ports & Adapters
//   - Capability ports live in the per-domain packages (payment, shipping, ...)
//   - Adapters live in the infrastructure layer and are registered at startup
package integration

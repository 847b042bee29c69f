// Package types defines the Ledger and Query interfaces, records, entity
// types, configuration, and standard errors for the Ledger storage system.
//
// A Ledger maps each registered entity type to one store file. A Query is the
// per-entity-type builder that filters, projects, and mutates that store.
package types

// Package authorityservice contains the Mandata implementation of property
// decision-making authority: ownership records, time-bounded delegated
// authority grants, and the resolution query that answers whether a party may
// act on a property.
//
// The module keeps domain/application logic decoupled from runtime/platform
// concerns through ports and adapter composition.
package authorityservice

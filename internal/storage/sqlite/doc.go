// Package sqlite persists sweep output: one run record per (sequence,
// method, structure) job, its rate-distortion rows, and the BD
// comparisons computed from them.
//
// The schema is versioned with golang-migrate; migrations are embedded
// so a fresh database file is usable without a checkout.
package sqlite

// Package database persists diagnostic runs to PostgreSQL.
//
// Persistence is optional: the diagnostic always writes a JSON file, and
// postgres is only used when enabled in config. Stored runs make failure
// rates comparable across time, which is how session-pool regressions on
// the vendor side get spotted.
package database

// Package store reads the two live metrics from PostgreSQL.
package store

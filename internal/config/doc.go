// Package config handles YAML configuration loading with environment variable substitution.
//
// Configuration files support ${VAR} syntax for environment variable interpolation.
// Two root types are loaded through the same functions: SiteConfig for the
// site process and MetricsdConfig for the metrics backend.
package config

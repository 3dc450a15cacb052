// Package config provides configuration structures and utilities for
// threadsnap. It defines the main options for fetching thread pages,
// caching and retry behavior, archive storage, and output preferences,
// plus per-forum profiles loaded from a YAML file.
package config

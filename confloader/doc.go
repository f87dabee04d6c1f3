// Package confloader loads snapset configuration from files and the
// environment.
//
// It wraps koanf to merge a YAML file with SNAPSET_-prefixed
// environment variables (environment wins) and unmarshal the result
// into koanf-tagged structs such as snapshot.Spec. A small fsnotify
// watcher is provided for callers who want to react to config file
// changes.
package confloader

// Package config loads and saves the kasascan settings file.
//
// Settings live in a YAML file under the platform config directory
// (Linux: ~/.config/kasascan/config.yaml) and hold defaults for scan
// timeout, watch interval, output sorting, the data directory, and the
// cloud endpoint. Command-line flags always override file values.
//
// The file is read once per process run into an immutable Settings
// struct that is passed into the components that need it; nothing
// re-reads or mutates it afterwards. Writes are atomic
// (temp-file-plus-rename) so a crash never corrupts the file.
package config

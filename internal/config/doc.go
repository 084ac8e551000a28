// Package config defines the YAML settings shared by vibration-alarm and
// alarm-ctl and provides helpers to load, validate and save them.
//
// Validate fills in defaults for everything the file leaves out, so a minimal
// file only needs the sections it changes.
package config

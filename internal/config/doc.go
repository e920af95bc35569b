// Package config provides loading and environment overlay for rangeflow
// configuration. It exposes a Default() baseline, JSON file loading, and a
// RANGEFLOW_* env overlay applied on top.
//
// Example:
//
//	cfg := config.Default()
//	if fileCfg, err := config.Load("/etc/rangeflow.json"); err == nil {
//	    cfg = fileCfg
//	}
//	config.FromEnv(&cfg)
package config

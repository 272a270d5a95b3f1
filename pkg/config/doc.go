// Package config loads YAML configuration files into a tree addressed by
// dotted keys.
//
//	cfg, err := config.Load("config/app.yaml", "config/local.yaml")
//	tz := cfg.String("app.timezone", "UTC")
//
// Values written as ${NAME} are replaced with environment variables before
// parsing; LoadEnv reads .env files into the environment first. Decode maps
// a subtree onto a struct using yaml tags.
package config

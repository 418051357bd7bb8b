// Package config provides configuration management for fernspiel.
//
// Configuration is read from config.yaml inside a single directory. The
// default directory is $XDG_CONFIG_HOME/fernspiel; commands accept
// --config-path to point elsewhere. A missing file is not an error: the
// defaults reproduce the runtime's well-known setup (control port 38397,
// readiness polling every 150ms for up to 5s, releases from
// krachzack/fernspielapparat).
//
// # File Format
//
//	installDir: /opt/fernspiel/runtime
//	release:
//	  repository: krachzack/fernspielapparat
//	  prerelease: false
//	  checksumAsset: checksums.txt
//	server:
//	  advertiseHost: 127.0.0.1
//	  args: ["-vvvv", "-s"]
//	readiness:
//	  interval: 150ms
//	  timeout: 5s
//	versionProbeTimeout: 5s
//	shutdownGrace: 5s
//	metrics:
//	  address: 127.0.0.1:9397
//	log:
//	  level: info
//	  format: text
//
// The runtime always listens on 0.0.0.0:38397; advertiseHost only changes the
// host the launcher probes and hands to clients. Durations use Go duration
// syntax. Unknown keys and invalid values produce a ConfigurationError naming
// the file and the kind of problem.
package config

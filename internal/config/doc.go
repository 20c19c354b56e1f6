// Package config loads the configuration of a statebus process.
//
// A configuration names the bus, sets the log level and declares named
// executors that subscribers and publishers can refer to:
//
//	log:
//	  level: debug
//	bus:
//	  name: app
//	  default_executor: background
//	executors:
//	  - name: ui
//	    kind: serial
//	  - name: background
//	    kind: pool
//	    workers: 4
//
// Values are read from a YAML file and then overridden by STATEBUS_*
// environment variables. A Holder keeps the current configuration, reloads
// it when the file changes and announces reloads on a bus.
package config

// Package config loads reactor configuration.
//
// Values are layered with koanf: built-in defaults, then reactor.yaml, then
// REACTOR_ environment variables, then explicitly set command-line flags.
//
// # Example reactor.yaml
//
//	script: cart.star
//	watch: true
//	server:
//	  addr: ":8080"
//	  shutdown_timeout: 10s
//	log:
//	  level: debug
//	  format: json
//	  file: reactor.log
//	metrics:
//	  enabled: true
//	  namespace: shop
//	tracing:
//	  enabled: true
//	view:
//	  page: index.html
//	  decimal_keys: [Total, Tax, Subtotal, Price]
//
// The same keys can be set from the environment, with a double underscore
// between nested keys:
//
//	REACTOR_LOG__LEVEL=debug REACTOR_SERVER__ADDR=:9000 reactor serve
package config

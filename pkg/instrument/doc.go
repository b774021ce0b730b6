// Package instrument provides reactive.Hooks backed by Prometheus and
// OpenTelemetry.
//
// Install both on a store with reactive.ChainHooks:
//
//	store := reactive.New(initial, reactive.WithHooks(reactive.ChainHooks(
//	    instrument.NewMetrics(instrument.WithRegistry(reg)),
//	    instrument.NewTracing(),
//	)))
//
// Expose the metrics with promhttp.HandlerFor(reg, promhttp.HandlerOpts{}).
package instrument

package view

import "github.com/vango-dev/reactor/pkg/reactive"

// Fanout forwards every update to each sink in order.
type Fanout []reactive.ViewSink

// UpdateView implements reactive.ViewSink.
func (f Fanout) UpdateView(u reactive.ViewUpdate) {
	for _, sink := range f {
		if sink != nil {
			sink.UpdateView(u)
		}
	}
}

// ReactiveKeys implements reactive.KeySource. Keys reported by the sinks
// are merged in sink order without duplicates.
func (f Fanout) ReactiveKeys() []string {
	var keys []string
	seen := make(map[string]bool)
	for _, sink := range f {
		src, ok := sink.(reactive.KeySource)
		if !ok {
			continue
		}
		for _, k := range src.ReactiveKeys() {
			if !seen[k] {
				seen[k] = true
				keys = append(keys, k)
			}
		}
	}
	return keys
}

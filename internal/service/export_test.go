package service

// WithStore sets the durable store for the service.
func WithStore(st Store) Options {
	return func(o *options) {
		o.store = st
	}
}

// WithMonitor sets the connectivity monitor for the service.
func WithMonitor(m Monitor) Options {
	return func(o *options) {
		o.monitor = m
	}
}

// WithSubmitter sets the submission client for the service.
func WithSubmitter(sub Submitter) Options {
	return func(o *options) {
		o.submitter = sub
	}
}

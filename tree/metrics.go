// Copyright 2017 The Upspin Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tree

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"appendtree.io/errors"
)

type metrics struct {
	ops     *prometheus.CounterVec
	fetches prometheus.Counter
	steps   prometheus.Histogram
}

// newMetrics creates the tree's collectors, registered with reg
// if it is not nil.
func newMetrics(reg prometheus.Registerer) *metrics {
	f := promauto.With(reg)
	return &metrics{
		ops: f.NewCounterVec(prometheus.CounterOpts{
			Name: "appendtree_operations_total",
			Help: "Tree operations by operation and result.",
		}, []string{"op", "result"}),
		fetches: f.NewCounter(prometheus.CounterOpts{
			Name: "appendtree_feed_fetches_total",
			Help: "Records read from the feed.",
		}),
		steps: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "appendtree_lookup_steps",
			Help:    "Records stepped onto per lookup.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}
}

// observe counts one call of op with the given outcome.
func (m *metrics) observe(op errors.Op, err error) {
	m.ops.WithLabelValues(string(op), result(err)).Inc()
}

func result(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(errors.NotExist, err):
		return "not_found"
	case errors.Is(errors.Invalid, err), errors.Is(errors.Syntax, err):
		return "invalid"
	}
	return "error"
}

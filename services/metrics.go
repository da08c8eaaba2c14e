package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	postViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "board_post_views_total",
		Help: "Number of post detail reads that incremented a view counter.",
	})
	likesToggled = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "board_likes_toggled_total",
		Help: "Like toggles by resulting state.",
	}, []string{"liked"})
	feedBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "board_feed_builds_total",
		Help: "Feed pages computed from the database, by sort mode.",
	}, []string{"sort"})
)

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookexplorer_http_requests_total",
		Help: "Total number of HTTP requests served",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookexplorer_http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	CatalogRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookexplorer_catalog_requests_total",
		Help: "Total number of requests sent to the book catalog",
	}, []string{"op", "status"})

	CatalogRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookexplorer_catalog_request_duration_seconds",
		Help:    "Duration of book catalog requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	FavoritesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bookexplorer_favorites",
		Help: "Number of books currently in the favorites collection",
	})

	SessionsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bookexplorer_sessions",
		Help: "Number of live sessions",
	})
)

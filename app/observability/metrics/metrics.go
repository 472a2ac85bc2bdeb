package metrics

import (
	"context"
	"log"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// AppMetrics holds the application's metric instruments.
type AppMetrics struct {
	PlacesCreatedTotal       metric.Int64Counter
	PlaceQueriesTotal        metric.Int64Counter
	ProximitySearchSeconds   metric.Float64Histogram
	DbQueryDurationSeconds   metric.Float64Histogram
	DbQueryErrorsTotal       metric.Int64Counter
	LLMRequestsTotal         metric.Int64Counter
	LLMRequestErrorsTotal    metric.Int64Counter
	NarrativeRefreshOutcomes metric.Int64Counter
	ChatMessagesTotal        metric.Int64Counter
}

var (
	appMetrics *AppMetrics
	once       sync.Once
)

// InitAppMetrics creates the instruments once, from the global MeterProvider.
// Call it after the provider is installed so the instruments are exported.
func InitAppMetrics() {
	once.Do(func() {
		meter := otel.GetMeterProvider().Meter("kamino-places-api")
		m := &AppMetrics{}

		m.PlacesCreatedTotal = mustCounter(meter, "places_created_total", "Total number of places created", "{place}")
		m.PlaceQueriesTotal = mustCounter(meter, "place_queries_total", "Total number of catalog queries by kind", "{query}")
		m.ProximitySearchSeconds = mustHistogram(meter, "proximity_search_duration_seconds", "Duration of distance filtering and ranking in seconds")
		m.DbQueryDurationSeconds = mustHistogram(meter, "db_query_duration_seconds", "Duration of database queries in seconds")
		m.DbQueryErrorsTotal = mustCounter(meter, "db_query_errors_total", "Total number of database query errors", "{error}")
		m.LLMRequestsTotal = mustCounter(meter, "llm_requests_total", "Total number of requests sent to the LLM provider", "{request}")
		m.LLMRequestErrorsTotal = mustCounter(meter, "llm_request_errors_total", "Total number of failed LLM provider requests", "{error}")
		m.NarrativeRefreshOutcomes = mustCounter(meter, "narrative_refresh_outcomes_total", "Narrative maintenance outcomes by result", "{document}")
		m.ChatMessagesTotal = mustCounter(meter, "chat_messages_total", "Chat messages answered by intent", "{message}")

		log.Println("Application metrics instruments initialized.")
		appMetrics = m
	})
}

// Get returns the instruments, creating them on first use.
func Get() *AppMetrics {
	InitAppMetrics()
	return appMetrics
}

// ObserveQuery records the duration of a named database query, and an
// error count when err is set.
func ObserveQuery(ctx context.Context, query string, start time.Time, err error) {
	m := Get()
	attrs := metric.WithAttributes(attribute.String("query", query))
	m.DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		m.DbQueryErrorsTotal.Add(ctx, 1, attrs)
	}
}

func mustCounter(meter metric.Meter, name, desc, unit string) metric.Int64Counter {
	c, err := meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return c
}

func mustHistogram(meter metric.Meter, name, desc string) metric.Float64Histogram {
	h, err := meter.Float64Histogram(name, metric.WithDescription(desc), metric.WithUnit("s"))
	if err != nil {
		log.Fatalf("Metrics: Failed to create %s: %v", name, err)
	}
	return h
}

package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"

	rpcmetrics "github.com/filecoin-project/go-jsonrpc/metrics"
)

// Distributions
var defaultMillisecondsDistribution = view.Distribution(
	0.01, 0.05, 0.1, 0.3, 0.6, 0.8, 1, 2, 3, 4, 5, 6, 8,
	10, 20, 30, 40, 50, 60, 70, 80, 90, 100,
	150, 200, 250, 300, 350, 400, 450, 500,
	600, 700, 800, 900, 1000,
	2000, 5000, 10000, 30000, 60000,
)

// Tags
var (
	Version, _     = tag.NewKey("version")
	Commit, _      = tag.NewKey("commit")
	Endpoint, _    = tag.NewKey("endpoint")
	Operation, _   = tag.NewKey("operation")
	FailureType, _ = tag.NewKey("failure_type")
)

// Measures
var (
	TradepostInfo      = stats.Int64("info", "Arbitrary counter to tag tradepost info to", stats.UnitDimensionless)
	APIRequestDuration = stats.Float64("api/request_duration_ms", "Duration of API requests", stats.UnitMilliseconds)

	ListingsCreated   = stats.Int64("market/listings_created", "Counter for successfully created listings", stats.UnitDimensionless)
	ListingsSettled   = stats.Int64("market/listings_settled", "Counter for settled purchases", stats.UnitDimensionless)
	ListingsDelisted  = stats.Int64("market/listings_delisted", "Counter for withdrawn listings", stats.UnitDimensionless)
	OperationFailures = stats.Int64("market/operation_failures", "Counter for failed mutating operations", stats.UnitDimensionless)
)

// Views
var (
	InfoView = &view.View{
		Name:        "info",
		Description: "Tradepost node information",
		Measure:     TradepostInfo,
		Aggregation: view.LastValue(),
		TagKeys:     []tag.Key{Version, Commit},
	}
	APIRequestDurationView = &view.View{
		Measure:     APIRequestDuration,
		Aggregation: defaultMillisecondsDistribution,
		TagKeys:     []tag.Key{Endpoint},
	}
	ListingsCreatedView = &view.View{
		Measure:     ListingsCreated,
		Aggregation: view.Count(),
	}
	ListingsSettledView = &view.View{
		Measure:     ListingsSettled,
		Aggregation: view.Count(),
	}
	ListingsDelistedView = &view.View{
		Measure:     ListingsDelisted,
		Aggregation: view.Count(),
	}
	OperationFailuresView = &view.View{
		Measure:     OperationFailures,
		Aggregation: view.Count(),
		TagKeys:     []tag.Key{Operation, FailureType},
	}
)

// DefaultViews is an array of OpenCensus views for metric gathering purposes
var DefaultViews = func() []*view.View {
	views := []*view.View{
		InfoView,
		APIRequestDurationView,
		ListingsCreatedView,
		ListingsSettledView,
		ListingsDelistedView,
		OperationFailuresView,
	}
	views = append(views, rpcmetrics.DefaultViews...)
	return views
}()

// SinceInMilliseconds returns the duration of time since the provide time as a float64.
func SinceInMilliseconds(startTime time.Time) float64 {
	return float64(time.Since(startTime).Nanoseconds()) / 1e6
}

// Timer is a function stopwatch, calling it starts the timer,
// calling the returned function will record the duration.
func Timer(ctx context.Context, m *stats.Float64Measure) func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		stats.Record(ctx, m.M(SinceInMilliseconds(start)))
		return time.Since(start)
	}
}

package observability

type MetricKind int

const (
	KindCounter MetricKind = iota
	KindHistogram
)

const (
	MUsecaseRequests         MetricKey = "usecase_requests_total"
	MUsecaseDuration         MetricKey = "usecase_duration_seconds"
	MHTTPRequests            MetricKey = "http_requests_total"
	MHTTPRequestDuration     MetricKey = "http_request_duration_seconds"
	MExternalRequests        MetricKey = "external_requests_total"
	MExternalRequestDuration MetricKey = "external_request_duration_seconds"
	MStockDecrementFailures  MetricKey = "stock_decrement_failures_total"
)

// MetricSpec describes one series family. Nil Buckets means the backend default.
type MetricSpec struct {
	Key     MetricKey
	Kind    MetricKind
	Help    string
	Labels  []string
	Buckets []float64
}

// bus publishes give up after 300ms
var externalBuckets = []float64{.001, .0025, .005, .01, .025, .05, .1, .2, .3, .5, 1}

// Catalog is every metric the service emits.
var Catalog = []MetricSpec{
	{Key: MUsecaseRequests, Kind: KindCounter, Help: "Total number of use case invocations.", Labels: []string{"use_case", "outcome"}},
	{Key: MUsecaseDuration, Kind: KindHistogram, Help: "Duration of use case execution in seconds.", Labels: []string{"use_case"}},
	{Key: MHTTPRequests, Kind: KindCounter, Help: "Total number of HTTP requests.", Labels: []string{"method", "route", "status"}},
	{Key: MHTTPRequestDuration, Kind: KindHistogram, Help: "Duration of HTTP requests in seconds.", Labels: []string{"method", "route", "status"}},
	{Key: MExternalRequests, Kind: KindCounter, Help: "Calls made to collaborators outside the use case (bus, redis, mongo).", Labels: []string{"peer", "endpoint", "outcome"}},
	{Key: MExternalRequestDuration, Kind: KindHistogram, Help: "Duration of external calls in seconds.", Labels: []string{"peer", "endpoint"}, Buckets: externalBuckets},
	{Key: MStockDecrementFailures, Kind: KindCounter, Help: "Stock decrements that failed after an order was placed.", Labels: []string{"mode"}},
}

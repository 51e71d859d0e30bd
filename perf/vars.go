package perf

import (
	"expvar"
	"net/http"

	"github.com/encodeous/metric"
)

var (
	DispatchLatency    = metric.NewHistogram("1m1s")
	DeliveryLatency    = metric.NewHistogram("10m10s")
	FramesReceived     = metric.NewCounter("10s1s")
	FramesSent         = metric.NewCounter("10s1s")
	FramesForwarded    = metric.NewCounter("10s1s")
	FramesDropped      = metric.NewCounter("10s1s")
	FramesDelivered    = metric.NewCounter("10s1s")
	InvalidFrames      = metric.NewCounter("10s1s")
	SendFailures       = metric.NewCounter("10s1s")
	RouteInsertions    = metric.NewCounter("1m1s")
	RouteWithdrawals   = metric.NewCounter("1m1s")
	SentBytesPerSecond = metric.NewCounter("10s1s")
	RecvBytesPerSecond = metric.NewCounter("10s1s")
)

func init() {
	http.Handle("/debug/metrics", metric.Handler(metric.Exposed))
	expvar.Publish("strand:FramesReceived/s", FramesReceived)
	expvar.Publish("strand:FramesSent/s", FramesSent)
	expvar.Publish("strand:FramesForwarded/s", FramesForwarded)
	expvar.Publish("strand:FramesDropped/s", FramesDropped)
	expvar.Publish("strand:FramesDelivered/s", FramesDelivered)
	expvar.Publish("strand:InvalidFrames/s", InvalidFrames)
	expvar.Publish("strand:SendFailures/s", SendFailures)
	expvar.Publish("strand:RouteInsertions", RouteInsertions)
	expvar.Publish("strand:RouteWithdrawals", RouteWithdrawals)
	expvar.Publish("strand:SentBytes/s", SentBytesPerSecond)
	expvar.Publish("strand:RecvBytes/s", RecvBytesPerSecond)
	expvar.Publish("strand:DeliveryLatency (ms)", DeliveryLatency)
	expvar.Publish("strand:DispatchLatency (µs)", DispatchLatency)
}

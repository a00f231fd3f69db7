package common

// App info.
const (
	AppName    = "RouteWatch"
	AppVersion = "0.1.0"
	AppAuthor  = "HON95"
)

// PrometheusNamespace - Prometheus metrics namespace.
const PrometheusNamespace = "routewatch"

// NetworkDeviceID - Sentinel device identifier for network-wide snapshots.
const NetworkDeviceID = "network"

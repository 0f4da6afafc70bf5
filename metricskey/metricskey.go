package metricskey

import "github.com/effective-security/metrics"

// Perf
var (
	// PerfRequestParse is perf metric
	PerfRequestParse = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_request_parse",
		Help:         "perf_request_parse provides the sample metrics of parsing certificate requests",
		RequiredTags: []string{"kind", "status"},
	}

	// PerfProfileBuild is perf metric
	PerfProfileBuild = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_profile_build",
		Help:         "perf_profile_build provides the sample metrics of building certificate content",
		RequiredTags: []string{"profile"},
	}

	// PerfEnroll is perf metric
	PerfEnroll = metrics.Describe{
		Type:         metrics.TypeSample,
		Name:         "perf_enroll",
		Help:         "perf_enroll provides the sample metrics of certificate enrollment",
		RequiredTags: []string{"profile", "status"},
	}
)

// Metrics returns slice of metrics from this repo
var Metrics = []*metrics.Describe{
	&PerfRequestParse,
	&PerfProfileBuild,
	&PerfEnroll,
}

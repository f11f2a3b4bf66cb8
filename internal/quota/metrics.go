package quota

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// QuotaRejections counts eligibility checks rejected by limits.
var QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
	Name: "leadengine_quota_rejections_total",
	Help: "The total number of provider eligibility checks rejected by limits.",
})

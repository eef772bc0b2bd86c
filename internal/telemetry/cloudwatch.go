// Package telemetry publishes request and quota metrics to CloudWatch.
// Publishing failures are logged and never reach the caller.
package telemetry

import (
	"context"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"recipebox/internal/types"
)

// Metric and dimension names.
const (
	MetricAPILatency      = "APILatency"
	MetricAPIRequestCount = "APIRequestCount"
	MetricQuotaRejected   = "QuotaRejected"

	DimMethod   = "Method"
	DimEndpoint = "Endpoint"
	DimStatus   = "Status"
	DimKind     = "Kind"
	DimTier     = "Tier"
)

const publishTimeout = 2 * time.Second

// CloudWatchClient is the subset of the CloudWatch API used here.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchCollector implements core.MetricsCollector and
// generation.QuotaMetrics.
type CloudWatchCollector struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger
}

// NewCloudWatchCollector creates a collector publishing under namespace.
func NewCloudWatchCollector(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatchCollector {
	if logger == nil {
		logger = slog.Default()
	}
	return &CloudWatchCollector{client: client, namespace: namespace, logger: logger}
}

// RecordRequest emits latency and count for one API request. endpoint
// should be a route pattern, not a raw path, to bound dimension cardinality.
func (c *CloudWatchCollector) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		dim(DimMethod, method),
		dim(DimEndpoint, endpoint),
		dim(DimStatus, status),
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	c.put(ctx, []cwtypes.MetricDatum{
		{
			MetricName: aws.String(MetricAPILatency),
			Value:      aws.Float64(float64(duration.Milliseconds())),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Dimensions: dims,
		},
		{
			MetricName: aws.String(MetricAPIRequestCount),
			Value:      aws.Float64(1),
			Unit:       cwtypes.StandardUnitCount,
			Dimensions: dims,
		},
	}, slog.String("endpoint", endpoint))
}

// RecordQuotaRejected counts a generation refused by the entitlement policy.
func (c *CloudWatchCollector) RecordQuotaRejected(ctx context.Context, kind types.UsageKind, tier types.Tier) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	c.put(ctx, []cwtypes.MetricDatum{{
		MetricName: aws.String(MetricQuotaRejected),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			dim(DimKind, string(kind)),
			dim(DimTier, string(tier)),
		},
	}}, slog.String("kind", string(kind)))
}

func (c *CloudWatchCollector) put(ctx context.Context, data []cwtypes.MetricDatum, attr slog.Attr) {
	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(c.namespace),
		MetricData: data,
	})
	if err != nil {
		c.logger.Error("failed to publish metric",
			slog.String("metric", aws.ToString(data[0].MetricName)),
			attr,
			slog.String("error", err.Error()),
		)
	}
}

func dim(name, value string) cwtypes.Dimension {
	return cwtypes.Dimension{Name: aws.String(name), Value: aws.String(value)}
}

// Noop discards every metric. Used when metrics are disabled.
type Noop struct{}

func (Noop) RecordRequest(string, string, string, time.Duration) {}

func (Noop) RecordQuotaRejected(context.Context, types.UsageKind, types.Tier) {}

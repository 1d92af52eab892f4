package main

import (
	"context"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	goEnroll "github.com/MrEthical07/goEnroll"
	otelexport "github.com/MrEthical07/goEnroll/metrics/export/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// startOTelReporter publishes engine metrics through an OTel SDK meter and
// logs the non-zero counters it collects every interval.
func startOTelReporter(engine *goEnroll.Engine, interval time.Duration) (func(), error) {
	if interval <= 0 {
		interval = time.Minute
	}

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	exporter, err := otelexport.NewOTelExporter(provider.Meter("goenroll"), engine)
	if err != nil {
		_ = provider.Shutdown(context.Background())
		return nil, err
	}

	done := make(chan struct{})
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				var rm metricdata.ResourceMetrics
				if err := reader.Collect(context.Background(), &rm); err != nil {
					log.Printf("goenroll: otel collect: %v", err)
					continue
				}
				if line := summarize(rm); line != "" {
					log.Printf("goenroll: metrics %s", line)
				}
			}
		}
	}()

	return func() {
		close(done)
		<-stopped
		_ = exporter.Close()
		_ = provider.Shutdown(context.Background())
	}, nil
}

func summarize(rm metricdata.ResourceMetrics) string {
	var parts []string
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if dp.Value == 0 {
					continue
				}
				name := m.Name
				if dp.Attributes.Len() > 0 {
					name += "{" + dp.Attributes.Encoded(attribute.DefaultEncoder()) + "}"
				}
				parts = append(parts, name+"="+strconv.FormatInt(dp.Value, 10))
			}
		}
	}
	sort.Strings(parts)
	return strings.Join(parts, " ")
}

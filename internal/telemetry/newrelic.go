package telemetry

import (
	"time"

	"example.com/ecoguard/config"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// InitNewRelic initializes the New Relic application. It returns nil when
// New Relic is disabled or has no license key.
func InitNewRelic(cfg config.NewRelicConfig) (*newrelic.Application, error) {
	if !cfg.Enabled || cfg.LicenseKey == "" {
		return nil, nil
	}

	app, err := newrelic.NewApplication(
		newrelic.ConfigAppName(cfg.AppName),
		newrelic.ConfigLicense(cfg.LicenseKey),
		newrelic.ConfigDistributedTracerEnabled(true),
		newrelic.ConfigAppLogForwardingEnabled(true),
	)
	if err != nil {
		return nil, err
	}

	if err := app.WaitForConnection(5 * time.Second); err != nil {
		return nil, err
	}

	return app, nil
}

// StartSegment opens a segment on the transaction carried by txn, if any.
// The returned func ends it and is always safe to call.
func StartSegment(txn *newrelic.Transaction, name string) func() {
	if txn == nil {
		return func() {}
	}
	seg := txn.StartSegment(name)
	return seg.End
}

// Package metrics holds the prometheus metrics sampled by the database layer.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MustRegister will register all relcore metrics on the given registry.
// If metrics with the same name already exist on the registry this function will panic.
func MustRegister(registry *prometheus.Registry) {
	registry.MustRegister(statementDuration, statementCounter, transactionCounter, migrationCounter)
}

// SampleStatement records one executed statement. op names the public call
// ("query", "insert", "update", ...).
func SampleStatement(op string, elapsed time.Duration, err error) {
	labels := prometheus.Labels{
		"status": status(err),
		"op":     op,
	}
	statementDuration.With(labels).Observe(elapsed.Seconds())
	statementCounter.With(labels).Inc()
}

// SampleTransaction records a transaction event: "begin", "commit" or "rollback".
func SampleTransaction(event string, err error) {
	transactionCounter.With(prometheus.Labels{
		"status": status(err),
		"event":  event,
	}).Inc()
}

// SampleMigration records one executed migration operation by kind.
func SampleMigration(kind string) {
	migrationCounter.With(prometheus.Labels{"kind": kind}).Inc()
}

// StatementCounter returns the statement counter, for tests.
func StatementCounter() *prometheus.CounterVec { return statementCounter }

// TransactionCounter returns the transaction counter, for tests.
func TransactionCounter() *prometheus.CounterVec { return transactionCounter }

// MigrationCounter returns the migration operation counter, for tests.
func MigrationCounter() *prometheus.CounterVec { return migrationCounter }

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var (
	statementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "relcore_statement_duration_seconds",
			Help: "Duration of statements executed against the engine",
			// embedded engine: most statements finish well under a millisecond
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		},
		[]string{"status", "op"},
	)
	statementCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relcore_statements_total",
			Help: "Total of statements executed against the engine",
		},
		[]string{"status", "op"},
	)
	transactionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relcore_transactions_total",
			Help: "Total of transaction begin, commit and rollback events",
		},
		[]string{"status", "event"},
	)
	migrationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relcore_migration_operations_total",
			Help: "Total of migration operations executed, by kind",
		},
		[]string{"kind"},
	)
)

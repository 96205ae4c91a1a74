package core

// OperationKind is used to identify what kind of operation is being performed by migration.
type OperationKind string

const (
	OperationSQL OperationKind = "SQL"
	// OperationPragma toggles connection state and runs outside of the transaction.
	OperationPragma OperationKind = "PRAGMA"
	// OperationCheck is a consistency query that must return no rows.
	OperationCheck OperationKind = "CHECK"
	OperationNote  OperationKind = "NOTE"
)

// OperationRisk is used to identify the risk level of an operation.
type OperationRisk string

const (
	RiskInfo     OperationRisk = "INFO"
	RiskWarning  OperationRisk = "WARNING"
	RiskCritical OperationRisk = "CRITICAL"
)

// Operation struct contains all information about a single step of a migration plan.
// For notes, SQL holds the message.
type Operation struct {
	Kind OperationKind `json:"kind"`
	SQL  string        `json:"sql,omitempty"`
	Risk OperationRisk `json:"risk,omitempty"`
}

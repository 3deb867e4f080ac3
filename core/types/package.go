package types

// PackageStatus is the lifecycle status of an ExoPak or RetroPak.
type PackageStatus uint8

const (
	PackageCreated PackageStatus = iota
	PackageSent
	PackageReceived
	PackageVerified
	PackageCommitted
	PackageRolledBack
	PackageFailed
)

func (s PackageStatus) String() string {
	switch s {
	case PackageCreated:
		return "CREATED"
	case PackageSent:
		return "SENT"
	case PackageReceived:
		return "RECEIVED"
	case PackageVerified:
		return "VERIFIED"
	case PackageCommitted:
		return "COMMITTED"
	case PackageRolledBack:
		return "ROLLED_BACK"
	case PackageFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ExoPak is the set of tokens leaving one party in a transaction.
type ExoPak struct {
	ID     string        `json:"id"`
	Status PackageStatus `json:"status"`
	Tokens []*Token      `json:"tokens"`
	Proof  []byte        `json:"proof"`
}

// ValueTotal returns the sum of the Value of every token in the package.
func (p *ExoPak) ValueTotal() Amount {
	var total Amount
	for _, tok := range p.Tokens {
		total += tok.Value
	}
	return total
}

// RollbackStepType enumerates the kinds of rollback actions a RetroPak can
// carry. The core only ever emits RESTORE steps (spec §4.1); the type
// exists so the rollback engine's step executor is a closed switch.
type RollbackStepType uint8

const (
	RollbackRestore RollbackStepType = iota
)

// RollbackStep is one instruction in a RetroPak's rollback plan.
type RollbackStep struct {
	Step  int              `json:"step"`
	Type  RollbackStepType `json:"type"`
	Proof []byte           `json:"proof"`
}

// RollbackInstructions is the pre-signed rollback plan attached to a
// RetroPak.
type RollbackInstructions struct {
	Steps     []RollbackStep `json:"steps"`
	TimeoutMs int64          `json:"timeoutMs"`
	Proof     []byte         `json:"proof"`
}

// RetroPak is the rollback insurance package: tokens a party retains
// locally, plus pre-signed instructions to restore them if the exchange
// does not complete.
type RetroPak struct {
	ID                    string                `json:"id"`
	Status                PackageStatus         `json:"status"`
	Tokens                []*Token              `json:"tokens"`
	Proof                 []byte                `json:"proof"`
	RollbackInstructions  RollbackInstructions  `json:"rollbackInstructions"`
}

func (p *RetroPak) ValueTotal() Amount {
	var total Amount
	for _, tok := range p.Tokens {
		total += tok.Value
	}
	return total
}

package types

import (
	"encoding/json"
	"fmt"
)

// OperationKind discriminates the operation tagged union.
type OperationKind int

const (
	MoveOp OperationKind = iota
	RenameOp
	RemoveOp
)

func (k OperationKind) String() string {
	switch k {
	case MoveOp:
		return "move"
	case RenameOp:
		return "rename"
	case RemoveOp:
		return "remove"
	default:
		return "unknown"
	}
}

// ParseOperationKind converts a wire name back into an OperationKind.
func ParseOperationKind(s string) (OperationKind, error) {
	switch s {
	case "move":
		return MoveOp, nil
	case "rename":
		return RenameOp, nil
	case "remove":
		return RemoveOp, nil
	default:
		return 0, fmt.Errorf("unknown operation %q", s)
	}
}

// RenameScope bounds where a rename rewrites references.
type RenameScope int

const (
	ProjectScope RenameScope = iota
	FileScope
)

func (s RenameScope) String() string {
	switch s {
	case ProjectScope:
		return "project"
	case FileScope:
		return "file"
	default:
		return "unknown"
	}
}

// Operation is one requested mutation: a closed sum over move, rename and
// remove, dispatched once per request. Created by the caller; consumed once.
type Operation struct {
	Op       OperationKind
	Selector Selector

	// Move fields.
	TargetFilePath string
	CopyOnly       bool

	// Rename fields.
	NewName string
	Scope   RenameScope

	// Traceability.
	Reason string
	ID     string
}

func (o Operation) String() string {
	switch o.Op {
	case MoveOp:
		return fmt.Sprintf("move %s -> %s", o.Selector, o.TargetFilePath)
	case RenameOp:
		return fmt.Sprintf("rename %s -> %s", o.Selector, o.NewName)
	case RemoveOp:
		return fmt.Sprintf("remove %s", o.Selector)
	default:
		return "unknown operation"
	}
}

// operationWire is the JSON shape consumed by the CLI and tool layers.
type operationWire struct {
	Operation      string   `json:"operation"`
	Selector       Selector `json:"selector"`
	TargetFilePath string   `json:"targetFilePath,omitempty"`
	CopyOnly       bool     `json:"copyOnly,omitempty"`
	NewName        string   `json:"newName,omitempty"`
	Scope          string   `json:"scope,omitempty"`
	Reason         string   `json:"reason,omitempty"`
	ID             string   `json:"id,omitempty"`
}

func (o Operation) MarshalJSON() ([]byte, error) {
	w := operationWire{
		Operation: o.Op.String(),
		Selector:  o.Selector,
		Reason:    o.Reason,
		ID:        o.ID,
	}
	switch o.Op {
	case MoveOp:
		w.TargetFilePath = o.TargetFilePath
		w.CopyOnly = o.CopyOnly
	case RenameOp:
		w.NewName = o.NewName
		w.Scope = o.Scope.String()
	}
	return json.Marshal(w)
}

func (o *Operation) UnmarshalJSON(data []byte) error {
	var w operationWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	op, err := ParseOperationKind(w.Operation)
	if err != nil {
		return err
	}
	o.Op = op
	o.Selector = w.Selector
	o.Reason = w.Reason
	o.ID = w.ID
	switch op {
	case MoveOp:
		if w.TargetFilePath == "" {
			return fmt.Errorf("move operation requires targetFilePath")
		}
		o.TargetFilePath = w.TargetFilePath
		o.CopyOnly = w.CopyOnly
	case RenameOp:
		o.NewName = w.NewName
		switch w.Scope {
		case "", "project":
			o.Scope = ProjectScope
		case "file":
			o.Scope = FileScope
		default:
			return fmt.Errorf("unknown rename scope %q", w.Scope)
		}
	}
	return nil
}

// ValidationResult reports whether an operation may proceed. A pure
// function of current project state plus one operation; never mutates.
type ValidationResult struct {
	CanProceed bool     `json:"canProceed"`
	Blockers   []string `json:"blockers"`
	Warnings   []string `json:"warnings"`
}

// AddBlocker records a blocking issue and marks the result as failed.
func (v *ValidationResult) AddBlocker(format string, args ...any) {
	v.Blockers = append(v.Blockers, fmt.Sprintf(format, args...))
	v.CanProceed = false
}

// AddWarning records a non-blocking issue.
func (v *ValidationResult) AddWarning(format string, args ...any) {
	v.Warnings = append(v.Warnings, fmt.Sprintf(format, args...))
}

// MethodTag reports which removal strategy an operation ended up using.
type MethodTag int

const (
	MethodNone MethodTag = iota
	MethodStandard
	MethodAggressive
	MethodManual
	MethodFailed
)

func (m MethodTag) String() string {
	switch m {
	case MethodStandard:
		return "standard"
	case MethodAggressive:
		return "aggressive"
	case MethodManual:
		return "manual"
	case MethodFailed:
		return "failed"
	default:
		return ""
	}
}

// OperationResult is the outcome of one operation. One per operation,
// returned to the caller; never retried automatically.
type OperationResult struct {
	Success       bool      `json:"success"`
	Operation     Operation `json:"operation"`
	AffectedFiles []string  `json:"affectedFiles"`
	Error         string    `json:"error,omitempty"`
	MethodTag     MethodTag `json:"-"`
}

// MarshalJSON emits the method tag as its wire string, omitting it when no
// strategy was recorded.
func (r OperationResult) MarshalJSON() ([]byte, error) {
	type alias OperationResult
	return json.Marshal(struct {
		alias
		MethodTag string `json:"methodTag,omitempty"`
	}{alias(r), r.MethodTag.String()})
}

// BatchOptions controls batch failure policy.
type BatchOptions struct {
	StopOnError bool `json:"stopOnError,omitempty"`
}

// BatchRequest is an ordered list of operations to run against one
// continuously-mutating project state.
type BatchRequest struct {
	Operations []Operation  `json:"operations"`
	Options    BatchOptions `json:"options,omitempty"`
}

// BatchResult aggregates per-operation outcomes. Success is the logical
// AND of all individual results; Error carries the first failure.
type BatchResult struct {
	Success bool              `json:"success"`
	Results []OperationResult `json:"results"`
	Error   string            `json:"error,omitempty"`
}

// Change is a byte-offset text edit against one file. OldText, when set,
// is verified against the file content before the edit is applied.
type Change struct {
	File        string
	Start       int
	End         int
	OldText     string
	NewText     string
	Description string
}

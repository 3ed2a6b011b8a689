package fhir

import "github.com/google/uuid"

// Issue severities.
const (
	IssueSeverityError       = "error"
	IssueSeverityWarning     = "warning"
	IssueSeverityInformation = "information"
)

// Issue types.
const (
	IssueTypeProcessing   = "processing"
	IssueTypeNotFound     = "not-found"
	IssueTypeInvalid      = "invalid"
	IssueTypeThrottled    = "throttled"
	IssueTypeNotSupported = "not-supported"
	IssueTypeTimeout      = "timeout"
)

// OperationOutcome represents a FHIR OperationOutcome for errors.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	ID           string                  `json:"id"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string   `json:"severity"`
	Code        string   `json:"code"`
	Diagnostics string   `json:"diagnostics,omitempty"`
	Expression  []string `json:"expression,omitempty"`
}

func NewOperationOutcome(severity, code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		ID:           uuid.NewString(),
		Issue: []OperationOutcomeIssue{
			{
				Severity:    severity,
				Code:        code,
				Diagnostics: diagnostics,
			},
		},
	}
}

func ErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeProcessing, diagnostics)
}

func NotFoundOutcome(resourceType, id string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeNotFound, resourceType+"/"+id+" not found")
}

// ThrottleOutcome creates a 429-style OperationOutcome indicating the server is
// rate-limiting the client.
func ThrottleOutcome() *OperationOutcome {
	return NewOperationOutcome(
		IssueSeverityError,
		IssueTypeThrottled,
		"Rate limit exceeded. Please retry after a delay.",
	)
}

// InvalidOutcome lists one invalid issue per message, e.g. catalog
// validation failures.
func InvalidOutcome(messages []string) *OperationOutcome {
	issues := make([]OperationOutcomeIssue, 0, len(messages))
	for _, m := range messages {
		issues = append(issues, OperationOutcomeIssue{
			Severity:    IssueSeverityError,
			Code:        IssueTypeInvalid,
			Diagnostics: m,
		})
	}
	return &OperationOutcome{ResourceType: "OperationOutcome", ID: uuid.NewString(), Issue: issues}
}

// TimeoutOutcome reports a request that exceeded its deadline.
func TimeoutOutcome() *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeTimeout, "Request processing exceeded the allowed time limit")
}

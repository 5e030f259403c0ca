package policy

// Resource types exposed by the API.
var (
	Contractors = &ResourceType{
		Name: "contractor", TypeName: "Contractor", Path: "contractors", Operations: OpAll,
	}
	Jobs = &ResourceType{
		Name: "job", TypeName: "Job", Path: "jobs", Operations: OpAll,
	}
	Policies = &ResourceType{
		Name: "policy", TypeName: "Policy", Path: "policies", Operations: OpAll,
	}
	Quotes = &ResourceType{
		Name: "quote", TypeName: "Quote", Path: "quotes", Operations: OpAll,
	}
	Assignments = &ResourceType{
		Name: "assignment", TypeName: "Assignment", Path: "assignments", Operations: OpAll,
	}
	Entities = &ResourceType{
		Name: "entity", TypeName: "Entity", Path: "entities", Operations: OpAll,
	}
	Invoices = &ResourceType{
		Name: "invoice", TypeName: "Invoice", Path: "invoices", Operations: OpAll,
	}
	InsuranceApplications = &ResourceType{
		Name: "insurance_application", TypeName: "InsuranceApplication", Path: "insurance_applications",
		Operations: OpRetrieve | OpList,
	}
	InsuranceApplicationSessions = &ResourceType{
		Name: "insurance_application_session", TypeName: "InsuranceApplicationSession", Path: "apply-sessions",
		Operations: OpRetrieve | OpCreate | OpUpdate | OpList,
	}
	WebhookEndpoints = &ResourceType{
		Name: "webhook_endpoint", TypeName: "WebhookEndpoint", Path: "webhook_endpoints", Operations: OpAll,
	}
	Events = &ResourceType{
		Name: "event", TypeName: "Event", Path: "events", Operations: OpRetrieve | OpList,
	}
)

func resourceTypes() []*ResourceType {
	return []*ResourceType{
		Contractors,
		Jobs,
		Policies,
		Quotes,
		Assignments,
		Entities,
		Invoices,
		InsuranceApplications,
		InsuranceApplicationSessions,
		WebhookEndpoints,
		Events,
	}
}

package log

// Common field names for structured logging
const (
	FieldComponent           = "component"
	FieldRequestID           = "request_id"
	FieldClientIP            = "client_ip"
	FieldMethod              = "method"
	FieldPath                = "path"
	FieldQuery               = "query"
	FieldStatusCode          = "status_code"
	FieldDuration            = "duration_ms"
	FieldUserAgent           = "user_agent"
	FieldSuccess             = "success"
	FieldError               = "error"
	FieldErrorType           = "error_type"
	FieldOperation           = "operation"
	FieldBommelID            = "bommel_id"
	FieldParentID            = "parent_id"
	FieldTargetID            = "target_id"
	FieldOrganizationID      = "organization_id"
	FieldLabel               = "label"
	FieldTransactionHandling = "transaction_handling"
	FieldIncludeDrafts       = "include_drafts"
	FieldAggregate           = "aggregate"
	FieldNodeCount           = "node_count"
	FieldEventID             = "event_id"
)

// Components defines standard component names
const (
	ComponentApp       = "app"
	ComponentHTTP      = "http"
	ComponentTree      = "tree"
	ComponentDrag      = "drag"
	ComponentMutation  = "mutation"
	ComponentStats     = "stats"
	ComponentStorage   = "storage"
	ComponentAMQP      = "amqp"
	ComponentWorker    = "worker"
	ComponentSheets    = "sheets"
	ComponentCache     = "cache"
	ComponentSecurity  = "security"
	ComponentRateLimit = "rate_limit"
	ComponentTrace     = "trace"
	ComponentBackend   = "backend"
	ComponentTemplate  = "template"
	ComponentTUI       = "tui"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpRename   = "rename"
	OpMove     = "move"
	OpDelete   = "delete"
	OpReload   = "reload"
	OpMode     = "set_mode"
	OpExport   = "export"
	OpRender   = "render"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// ErrorTypes defines standard error type categories
const (
	ErrorTypeValidation    = "validation_error"
	ErrorTypePersistence   = "persistence_error"
	ErrorTypeIntegrity     = "integrity_error"
	ErrorTypeConfiguration = "configuration_error"
	ErrorTypeNotFound      = "not_found_error"
	ErrorTypeConflict      = "conflict_error"
	ErrorTypeInternal      = "internal_error"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

func NewFields() LogFields {
	return make(LogFields)
}

func (f LogFields) WithComponent(component string) LogFields {
	f[FieldComponent] = component
	return f
}

func (f LogFields) WithRequestID(requestID string) LogFields {
	f[FieldRequestID] = requestID
	return f
}

func (f LogFields) WithClientIP(ip string) LogFields {
	f[FieldClientIP] = ip
	return f
}

// WithError adds the error and, when given, its category.
func (f LogFields) WithError(err error, errorType ...string) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
		if len(errorType) > 0 {
			f[FieldErrorType] = errorType[0]
		}
	}
	return f
}

func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithBommel adds the node and, if non-zero, its (new) parent.
func (f LogFields) WithBommel(id, parentID int64) LogFields {
	f[FieldBommelID] = id
	if parentID != 0 {
		f[FieldParentID] = parentID
	}
	return f
}

func (f LogFields) WithOrganization(id int64) LogFields {
	f[FieldOrganizationID] = id
	return f
}

func (f LogFields) WithMode(includeDrafts, aggregate bool) LogFields {
	f[FieldIncludeDrafts] = includeDrafts
	f[FieldAggregate] = aggregate
	return f
}

func (f LogFields) WithHTTPRequest(method, path, query, userAgent string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldQuery] = query
	if userAgent != "" {
		f[FieldUserAgent] = userAgent
	}
	return f
}

func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64, success bool) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
	f[FieldSuccess] = success
	return f
}

// ToSlice converts LogFields to a slice for slog
func (f LogFields) ToSlice() []any {
	slice := make([]any, 0, len(f)*2)
	for k, v := range f {
		slice = append(slice, k, v)
	}
	return slice
}

package log

// Common field names for structured logging
const (
	FieldComponent   = "component"
	FieldRequestID   = "request_id"
	FieldClientIP    = "client_ip"
	FieldMethod      = "method"
	FieldPath        = "path"
	FieldStatusCode  = "status_code"
	FieldDuration    = "duration_ms"
	FieldError       = "error"
	FieldOperation   = "operation"
	FieldKey         = "key"
	FieldIndex       = "index"
	FieldDBPath      = "db_path"
	FieldVersion     = "version"
	FieldSaleID      = "sale_id"
	FieldSaleName    = "sale_name"
	FieldQuantity    = "quantity"
	FieldExpenseID   = "expense_id"
	FieldExpenseNote = "expense_note"
	FieldAmount      = "amount"
	FieldCurrency    = "currency"
	FieldRate        = "rate"
)

// Components defines standard component names
const (
	ComponentApp     = "app"
	ComponentHTTP    = "http"
	ComponentLedger  = "ledger"
	ComponentStorage = "storage"
	ComponentBackend = "backend"
)

// Operations defines standard operation names
const (
	OpCreate   = "create"
	OpDelete   = "delete"
	OpLoad     = "load"
	OpPersist  = "persist"
	OpSetRate  = "set_rate"
	OpShutdown = "shutdown"
	OpStartup  = "startup"
)

// LogFields provides a builder pattern for structured log fields
type LogFields map[string]any

// NewFields creates a new LogFields instance
func NewFields() LogFields {
	return make(LogFields)
}

// WithError adds error field
func (f LogFields) WithError(err error) LogFields {
	if err != nil {
		f[FieldError] = err.Error()
	}
	return f
}

// WithOperation adds operation field
func (f LogFields) WithOperation(op string) LogFields {
	f[FieldOperation] = op
	return f
}

// WithSale adds sale-related fields
func (f LogFields) WithSale(id, name string, qty int, sellPrice, currency string) LogFields {
	f[FieldSaleID] = id
	f[FieldSaleName] = name
	f[FieldQuantity] = qty
	f[FieldAmount] = sellPrice
	f[FieldCurrency] = currency
	return f
}

// WithExpense adds expense-related fields
func (f LogFields) WithExpense(id, note, amount, currency string) LogFields {
	f[FieldExpenseID] = id
	f[FieldExpenseNote] = note
	f[FieldAmount] = amount
	f[FieldCurrency] = currency
	return f
}

// WithHTTPRequest adds HTTP request fields
func (f LogFields) WithHTTPRequest(method, path, clientIP string) LogFields {
	f[FieldMethod] = method
	f[FieldPath] = path
	f[FieldClientIP] = clientIP
	return f
}

// WithHTTPResponse adds HTTP response fields
func (f LogFields) WithHTTPResponse(statusCode int, durationMs int64) LogFields {
	f[FieldStatusCode] = statusCode
	f[FieldDuration] = durationMs
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

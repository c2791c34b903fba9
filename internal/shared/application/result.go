package application

// StatusCode classifies the outcome of a request.
type StatusCode int

// Status codes mirror their HTTP equivalents so the web layer can map
// results without translation.
const (
	StatusSuccess         StatusCode = 200
	StatusBadRequest      StatusCode = 400
	StatusUnauthorized    StatusCode = 401
	StatusForbidden       StatusCode = 403
	StatusNotFound        StatusCode = 404
	StatusConflict        StatusCode = 409
	StatusTooManyRequests StatusCode = 429
	StatusInternalError   StatusCode = 500
	StatusBadGateway      StatusCode = 502
)

// Pagination carries page metadata for list results.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalItems int64 `json:"total_items"`
	TotalPages int   `json:"total_pages"`
}

// Result is the outcome envelope produced by every handler.
// Behaviors may replace a Result wholesale but never mutate one in flight.
type Result struct {
	Code       StatusCode  `json:"status_code"`
	Message    string      `json:"message"`
	Data       any         `json:"data,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// Succeeded reports whether the request completed successfully.
func (r Result) Succeeded() bool {
	return r.Code == StatusSuccess
}

// OK creates a successful result.
func OK(data any, message string) Result {
	if message == "" {
		message = "Success"
	}
	return Result{Code: StatusSuccess, Message: message, Data: data}
}

// OKPage creates a successful result with pagination metadata.
func OKPage(data any, message string, page Pagination) Result {
	res := OK(data, message)
	res.Pagination = &page
	return res
}

// Fail creates a failed result.
func Fail(message string, code StatusCode, data any) Result {
	if code == 0 {
		code = StatusInternalError
	}
	return Result{Code: code, Message: message, Data: data}
}

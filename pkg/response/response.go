package response

// Response is the envelope every JSON endpoint returns. Code is set on
// errors the client can act on, such as "missing_dependency" from the
// configurator or "terminal_state" from a pipeline move.
type Response struct {
	Status     string      `json:"status"`
	StatusCode int         `json:"status_code"`
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
	Code       string      `json:"code,omitempty"`
}

func Success(statusCode int, data interface{}) Response {
	return Response{
		Status:     "success",
		StatusCode: statusCode,
		Data:       data,
	}
}

func Error(statusCode int, err string) Response {
	return Response{
		Status:     "error",
		StatusCode: statusCode,
		Error:      err,
	}
}

// CodedError is Error with a machine-readable code attached.
func CodedError(statusCode int, code, err string) Response {
	r := Error(statusCode, err)
	r.Code = code
	return r
}

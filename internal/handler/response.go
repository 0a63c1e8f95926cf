package handler

type Response struct {
	Status  string      `json:"status"`
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status:  "success",
		Success: true,
		Data:    data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Success: false,
		Message: message,
	}
}

// NewErrorResponseWithData carries details such as per-field validation
// failures next to the message.
func NewErrorResponseWithData(message string, data interface{}) *Response {
	r := NewErrorResponse(message)
	r.Data = data
	return r
}

package serverutils

type BaseResponse[T any] struct {
	Success bool   `json:"success"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    T      `json:"data,omitempty"`
}

type ErrorDetail struct {
	Type        string            `json:"type"`
	Instruction string            `json:"instruction,omitempty"`
	Fields      map[string]string `json:"fields,omitempty"`
}

func SuccessResponse[T any](message string, data T) BaseResponse[T] {
	return BaseResponse[T]{
		Success: true,
		Code:    200,
		Message: message,
		Data:    data,
	}
}

func ErrorResponse(code int, message string) BaseResponse[any] {
	return BaseResponse[any]{
		Success: false,
		Code:    code,
		Message: message,
	}
}

func DetailedErrorResponse(code int, message string, detail ErrorDetail) BaseResponse[ErrorDetail] {
	return BaseResponse[ErrorDetail]{
		Success: false,
		Code:    code,
		Message: message,
		Data:    detail,
	}
}

package response

// Response is the envelope every JSON endpoint replies with
type Response struct {
	Status     string      `json:"status"`      // "success" or "error"
	StatusCode int         `json:"status_code"` // HTTP status code
	Data       interface{} `json:"data,omitempty"`
	Error      string      `json:"error,omitempty"`
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

// Page is the data of a listing endpoint. The rows sit under key so each
// resource keeps its own name for them ("invoices", "logs").
func Page(key string, items interface{}, total int64, page, limit int) map[string]interface{} {
	return map[string]interface{}{
		key:     items,
		"total": total,
		"page":  page,
		"limit": limit,
	}
}

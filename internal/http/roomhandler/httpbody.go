package roomhandler

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
} // @name HealthResponse

type ErrorResponse struct {
	Error string `json:"error"`
} // @name ErrorResponse

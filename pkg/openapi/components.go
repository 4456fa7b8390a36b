package openapi

import "net/http"

// errorResponses are the component responses shared by every handler, keyed
// by the status each one documents.
var errorResponses = map[int]string{
	http.StatusBadRequest:            "BadRequest",
	http.StatusUnauthorized:          "Unauthorized",
	http.StatusNotFound:              "NotFound",
	http.StatusConflict:              "Conflict",
	http.StatusRequestEntityTooLarge: "TooLarge",
	http.StatusUnprocessableEntity:   "PipelineFailed",
	http.StatusServiceUnavailable:    "Unavailable",
}

var errorDescriptions = map[string]string{
	"BadRequest":     "Malformed body, identifier or query parameter",
	"Unauthorized":   "Missing or invalid caller identity",
	"NotFound":       "Resource not found or not owned by the caller",
	"Conflict":       "Duplicate resource or concurrent pipeline run",
	"TooLarge":       "Upload exceeds the configured size limit",
	"PipelineFailed": "The pipeline finished in the failed state",
	"Unavailable":    "The request was cancelled before the pipeline finished",
}

// NewComponents returns the Error and PageRequest schemas plus one response
// per entry in the shared error set.
func NewComponents() *Components {
	c := &Components{
		Schemas: map[string]*Schema{
			"Error": {
				Type: "object",
				Properties: map[string]*Schema{
					"error": {Type: "string"},
				},
			},
			"PageRequest": {
				Type: "object",
				Properties: map[string]*Schema{
					"page":      {Type: "integer", Description: "1-based page number", Example: 1},
					"page_size": {Type: "integer", Example: 20},
					"search":    {Type: "string"},
					"sort":      {Type: "string", Description: "Comma-separated fields, prefix - for descending", Example: "-uploaded_at"},
				},
			},
		},
		Responses: make(map[string]*Response, len(errorDescriptions)),
	}

	for name, desc := range errorDescriptions {
		c.Responses[name] = &Response{
			Description: desc,
			Content: map[string]*MediaType{
				"application/json": {Schema: SchemaRef("Error")},
			},
		}
	}
	return c
}

// ErrorResponse returns a $ref to the shared response for status, or nil
// when status has none.
func ErrorResponse(status int) *Response {
	name, ok := errorResponses[status]
	if !ok {
		return nil
	}
	return ResponseRef(name)
}

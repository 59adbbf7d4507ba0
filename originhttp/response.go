package originhttp

// Response is populated by the handler and framed by writeResponse
// (§4.5) before being written back on the connection. StatusCode
// defaults to 200 when left zero, matching the teacher's responseBuffer
// behavior.
type Response struct {
	StatusCode int
	Header     Header
	Body       []byte
}

// NewResponse returns a zeroed Response ready for a handler to populate.
func NewResponse() *Response {
	return &Response{Header: NewHeader()}
}

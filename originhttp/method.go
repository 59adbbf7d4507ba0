package originhttp

// Method is the closed enumeration of HTTP methods this server
// understands. Any request-line token outside this set is an unknown
// method, per spec: the connection is closed silently, no response is
// produced.
type Method int

const (
	MethodUnknown Method = iota
	MethodGET
	MethodPOST
	MethodPUT
	MethodPATCH
	MethodDELETE
	MethodHEAD
	MethodOPTIONS
	MethodTRACE
	MethodCONNECT
)

func (m Method) String() string {
	switch m {
	case MethodGET:
		return "GET"
	case MethodPOST:
		return "POST"
	case MethodPUT:
		return "PUT"
	case MethodPATCH:
		return "PATCH"
	case MethodDELETE:
		return "DELETE"
	case MethodHEAD:
		return "HEAD"
	case MethodOPTIONS:
		return "OPTIONS"
	case MethodTRACE:
		return "TRACE"
	case MethodCONNECT:
		return "CONNECT"
	default:
		return ""
	}
}

// parseMethod maps a request-line token onto the closed Method
// enumeration. It returns (MethodUnknown, false) for anything else.
func parseMethod(tok string) (Method, bool) {
	switch tok {
	case "GET":
		return MethodGET, true
	case "POST":
		return MethodPOST, true
	case "PUT":
		return MethodPUT, true
	case "PATCH":
		return MethodPATCH, true
	case "DELETE":
		return MethodDELETE, true
	case "HEAD":
		return MethodHEAD, true
	case "OPTIONS":
		return MethodOPTIONS, true
	case "TRACE":
		return MethodTRACE, true
	case "CONNECT":
		return MethodCONNECT, true
	default:
		return MethodUnknown, false
	}
}

// hasBody reports whether requests of this method are expected to carry
// a body, per spec.md §4.3: the spooler only runs for these four.
func (m Method) hasBody() bool {
	switch m {
	case MethodPOST, MethodPUT, MethodPATCH, MethodDELETE:
		return true
	default:
		return false
	}
}

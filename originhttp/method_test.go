package originhttp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseMethodKnownAndUnknown(t *testing.T) {
	m, ok := parseMethod("POST")
	assert.True(t, ok)
	assert.Equal(t, MethodPOST, m)

	_, ok = parseMethod("FROB")
	assert.False(t, ok)
}

func TestMethodHasBody(t *testing.T) {
	for _, m := range []Method{MethodPOST, MethodPUT, MethodPATCH, MethodDELETE} {
		assert.True(t, m.hasBody(), m.String())
	}
	for _, m := range []Method{MethodGET, MethodHEAD, MethodOPTIONS, MethodTRACE, MethodCONNECT} {
		assert.False(t, m.hasBody(), m.String())
	}
}

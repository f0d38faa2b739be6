package server

import (
	"reflect"

	"github.com/invopop/jsonschema"
)

// Schema describes the request lines accepted by ServeStdio.
func Schema() *jsonschema.Schema {
	reflector := new(jsonschema.Reflector)
	reflector.Anonymous = true
	reflector.Namer = func(t reflect.Type) string {
		return "server." + t.Name()
	}

	return reflector.Reflect(&Request{})
}

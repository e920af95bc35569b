package runtime

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// compileFilter compiles a CEL expression into a per-item predicate.
//
// Exposed variables:
//
//	space    string  the scanned space name
//	seq      int     record sequence
//	size     int     payload size in bytes
//	text     string  payload as a string
//	json     dyn     payload parsed as JSON (null when not JSON)
//	headers  map     record header parsed as a JSON string map
//	now_ms   int     evaluation time in ms, for windowed filters
//
// Evaluation errors reject the item rather than failing the scan.
func compileFilter(expr string) (func(Item) bool, error) {
	expr = strings.TrimSpace(expr)
	env, err := cel.NewEnv(
		cel.Variable("space", cel.StringType),
		cel.Variable("seq", cel.IntType),
		cel.Variable("size", cel.IntType),
		cel.Variable("text", cel.StringType),
		cel.Variable("json", cel.DynType),
		cel.Variable("headers", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	checked, iss := env.Check(ast)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, err
	}

	return func(it Item) bool {
		var jsonObj any
		_ = json.Unmarshal(it.Payload, &jsonObj)
		headers := map[string]string{}
		if len(it.Header) > 0 {
			var hm map[string]string
			if err := json.Unmarshal(it.Header, &hm); err == nil {
				headers = hm
			}
		}
		out, _, err := prog.Eval(map[string]any{
			"space":   it.Space,
			"seq":     int64(it.Seq),
			"size":    int64(len(it.Payload)),
			"text":    string(it.Payload),
			"json":    jsonObj,
			"headers": headers,
			"now_ms":  time.Now().UnixMilli(),
		})
		if err != nil {
			return false
		}
		b, ok := out.Value().(bool)
		return ok && b
	}, nil
}

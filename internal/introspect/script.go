package introspect

import "strings"

// EmitDirective makes the prover walk its loaded environment and print
// one record block per declaration on standard output.
const EmitDirective = `run_cmd leangraph.emit_env_records`

// BuildSource creates the wrapper source handed to the prover: import
// the emitter, import every target module, then run the emitter over
// the combined environment.
func BuildSource(modules ...string) string {
	var sb strings.Builder
	sb.WriteString("import leangraph.emitter\n")
	for _, m := range modules {
		sb.WriteString("import ")
		sb.WriteString(m)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(EmitDirective)
	sb.WriteString("\n")
	return sb.String()
}

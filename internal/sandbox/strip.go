package sandbox

import "strings"

// selfRunGuard opens the self-invocation block generated scrapers sometimes
// carry at the end of the file.
const selfRunGuard = "if __name__ =="

// stripSelfInvocation removes any __main__ guard block from candidate code.
// The harness supplies its own invocation; two competing entry invocations
// would corrupt the serialized output.
//
// Scan rule: upon finding the guard line, suppress all subsequent lines
// that are blank or indented (members of the block) until a non-blank,
// non-indented line reappears, then resume normal inclusion.
func stripSelfInvocation(code string) string {
	lines := strings.Split(code, "\n")
	kept := make([]string, 0, len(lines))
	skipping := false

	for _, line := range lines {
		if strings.Contains(line, selfRunGuard) {
			skipping = true
			continue
		}
		if skipping {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if line[0] == ' ' || line[0] == '\t' {
				continue
			}
			skipping = false
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

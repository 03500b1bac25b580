package platform

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// URL returns the address the backend serves on.
func URL(host string, port int) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(port))
}

// Args returns the interpreter arguments that serve the entry file
// on host:port.
func Args(entryFile string, host string, port int) []string {
	return []string{"-e", Script(entryFile, host, port)}
}

// Script returns the expression that starts the shiny app. All dynamic
// values are embedded as escaped string literals.
func Script(entryFile string, host string, port int) string {
	return fmt.Sprintf(
		"shiny::runApp(file.path(%s), host=%s, port=%d, launch.browser=FALSE)",
		QuoteR(entryFile),
		QuoteR(host),
		port,
	)
}

// QuoteR returns s as a single-quoted R string literal.
func QuoteR(s string) string {
	var b strings.Builder

	b.Grow(len(s) + 2)
	b.WriteByte('\'')

	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\'':
			b.WriteString(`\'`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02x`, r)
				continue
			}
			b.WriteRune(r)
		}
	}

	b.WriteByte('\'')

	return b.String()
}

package auth

import "strings"

// DefaultPrompt is the password prompt template used when none is configured.
const DefaultPrompt = "[dittoauth] password for %p: "

// PromptVars are the values substituted by ExpandPrompt.
type PromptVars struct {
	User       string // invoking user (%u, %p)
	TargetUser string // user the command runs as (%U)
	Host       string // short host name (%h)
	FQDN       string // fully qualified host name (%H)
}

// ExpandPrompt substitutes the escapes in tmpl:
//
//	%u  invoking user
//	%U  target user
//	%h  short host name
//	%H  fully qualified host name, falling back to %h
//	%p  user whose password is requested
//	%%  literal percent sign
//
// Unknown escapes and a trailing % are kept verbatim.
func ExpandPrompt(tmpl string, v PromptVars) string {
	if !strings.Contains(tmpl, "%") {
		return tmpl
	}

	var b strings.Builder
	b.Grow(len(tmpl) + 16)
	for i := 0; i < len(tmpl); i++ {
		c := tmpl[i]
		if c != '%' || i+1 == len(tmpl) {
			b.WriteByte(c)
			continue
		}
		i++
		switch tmpl[i] {
		case 'u', 'p':
			b.WriteString(v.User)
		case 'U':
			b.WriteString(v.TargetUser)
		case 'h':
			b.WriteString(shortHost(v.Host))
		case 'H':
			if v.FQDN != "" {
				b.WriteString(v.FQDN)
			} else {
				b.WriteString(v.Host)
			}
		case '%':
			b.WriteByte('%')
		default:
			b.WriteByte('%')
			b.WriteByte(tmpl[i])
		}
	}
	return b.String()
}

func shortHost(h string) string {
	if i := strings.IndexByte(h, '.'); i > 0 {
		return h[:i]
	}
	return h
}

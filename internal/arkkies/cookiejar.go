package arkkies

import (
	"strings"
	"time"
)

// SessionCookieName is the cookie Ory Kratos issues for an authenticated
// session; its Expires attribute is the fallback source for session expiry.
const SessionCookieName = "ory_kratos_session"

type cookie struct {
	value      string
	attributes map[string]string
}

// Jar is an in-memory cookie store for one chain of Arkkies calls. It is
// built from the serialized header stored on the credential row (or empty),
// fed from Set-Cookie response headers, and serialized back for persistence.
// Not safe for concurrent use; each request chain gets its own jar.
type Jar struct {
	order   []string
	cookies map[string]*cookie
}

// NewJar parses an optional "name=value; name2=value2" string as stored in
// the credential row. Values may themselves contain '=' (base64), so each
// pair splits on the first '=' only. Malformed pairs are skipped.
func NewJar(serialized string) *Jar {
	j := &Jar{cookies: make(map[string]*cookie)}
	for _, part := range strings.Split(serialized, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, ok := strings.Cut(part, "=")
		if !ok || name == "" {
			continue
		}
		j.set(name, value, nil)
	}
	return j
}

// AddFromSetCookie merges raw Set-Cookie header values into the jar. The
// first ';'-segment is name=value, the rest are attribute[=value] pairs kept
// lowercase-keyed. A cookie replaces any existing cookie of the same name.
func (j *Jar) AddFromSetCookie(headers []string) {
	for _, header := range headers {
		segments := strings.Split(header, ";")
		name, value, ok := strings.Cut(strings.TrimSpace(segments[0]), "=")
		if !ok || name == "" {
			continue
		}

		attrs := make(map[string]string)
		for _, seg := range segments[1:] {
			seg = strings.TrimSpace(seg)
			if seg == "" {
				continue
			}
			attrName, attrValue, _ := strings.Cut(seg, "=")
			attrs[strings.ToLower(attrName)] = attrValue
		}
		j.set(name, value, attrs)
	}
}

// Header serializes the jar into a Cookie request header value. Order is
// insertion order, so a given jar always serializes the same way.
func (j *Jar) Header() string {
	pairs := make([]string, 0, len(j.order))
	for _, name := range j.order {
		pairs = append(pairs, name+"="+j.cookies[name].value)
	}
	return strings.Join(pairs, "; ")
}

// Len reports the number of cookies held.
func (j *Jar) Len() int {
	return len(j.cookies)
}

// SessionExpiry reads the Expires attribute of the session cookie. Returns
// nil when the cookie or attribute is absent or the date does not parse.
func (j *Jar) SessionExpiry() *time.Time {
	c, ok := j.cookies[SessionCookieName]
	if !ok || c.attributes == nil {
		return nil
	}
	raw, ok := c.attributes["expires"]
	if !ok || raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC1123, time.RFC1123Z, time.RFC850, time.ANSIC} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func (j *Jar) set(name, value string, attrs map[string]string) {
	if _, exists := j.cookies[name]; !exists {
		j.order = append(j.order, name)
	}
	j.cookies[name] = &cookie{value: value, attributes: attrs}
}

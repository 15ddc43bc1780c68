package arkkies

import (
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJar(t *testing.T) {
	t.Run("parses stored header string", func(t *testing.T) {
		jar := NewJar("a=1; b=2")
		assert.Equal(t, 2, jar.Len())
		assert.Equal(t, "a=1; b=2", jar.Header())
	})

	t.Run("empty string yields empty jar", func(t *testing.T) {
		jar := NewJar("")
		assert.Equal(t, 0, jar.Len())
		assert.Equal(t, "", jar.Header())
	})

	t.Run("splits values on first equals only", func(t *testing.T) {
		jar := NewJar("token=abc=def==; plain=1")
		assert.Contains(t, jar.Header(), "token=abc=def==")
	})

	t.Run("skips malformed pairs", func(t *testing.T) {
		jar := NewJar("novalue; a=1; ;=orphan")
		assert.Equal(t, 1, jar.Len())
		assert.Equal(t, "a=1", jar.Header())
	})

	t.Run("round-trips an equivalent cookie set", func(t *testing.T) {
		jar := NewJar("a=1; b=2; c=3")
		again := NewJar(jar.Header())

		assert.ElementsMatch(t,
			sortedPairs(jar.Header()),
			sortedPairs(again.Header()),
		)
	})
}

func TestAddFromSetCookie(t *testing.T) {
	t.Run("adds cookies with attributes", func(t *testing.T) {
		jar := NewJar("")
		jar.AddFromSetCookie([]string{
			"a=1; Path=/",
			"b=2; Expires=Wed, 01 Jan 2030 00:00:00 GMT",
		})

		header := jar.Header()
		assert.Contains(t, header, "a=1")
		assert.Contains(t, header, "b=2")
		assert.NotContains(t, header, "Path")
		assert.NotContains(t, header, "Expires")
	})

	t.Run("last write wins per name", func(t *testing.T) {
		jar := NewJar("")
		jar.AddFromSetCookie([]string{"session=old"})
		jar.AddFromSetCookie([]string{"session=new; Path=/"})

		assert.Equal(t, 1, jar.Len())
		assert.Equal(t, "session=new", jar.Header())
	})

	t.Run("skips malformed headers", func(t *testing.T) {
		jar := NewJar("")
		jar.AddFromSetCookie([]string{"noequals", "", "a=1"})
		assert.Equal(t, 1, jar.Len())
	})

	t.Run("value may contain equals", func(t *testing.T) {
		jar := NewJar("")
		jar.AddFromSetCookie([]string{"csrf=dG9rZW4=; Path=/; HttpOnly"})
		assert.Equal(t, "csrf=dG9rZW4=", jar.Header())
	})

	t.Run("header order is deterministic", func(t *testing.T) {
		jar := NewJar("")
		jar.AddFromSetCookie([]string{"a=1", "b=2", "c=3"})
		first := jar.Header()
		for i := 0; i < 10; i++ {
			assert.Equal(t, first, jar.Header())
		}
	})
}

func TestSessionExpiry(t *testing.T) {
	t.Run("parses the session cookie expires attribute", func(t *testing.T) {
		jar := NewJar("")
		jar.AddFromSetCookie([]string{
			SessionCookieName + "=abc123; Path=/; Expires=Wed, 01 Jan 2020 00:00:00 GMT; HttpOnly",
		})

		expiry := jar.SessionExpiry()
		require.NotNil(t, expiry)
		assert.True(t, expiry.Equal(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)))
	})

	t.Run("nil when session cookie absent", func(t *testing.T) {
		jar := NewJar("other=1")
		assert.Nil(t, jar.SessionExpiry())
	})

	t.Run("nil when expires attribute absent", func(t *testing.T) {
		jar := NewJar("")
		jar.AddFromSetCookie([]string{SessionCookieName + "=abc; Path=/"})
		assert.Nil(t, jar.SessionExpiry())
	})

	t.Run("nil when expires does not parse", func(t *testing.T) {
		jar := NewJar("")
		jar.AddFromSetCookie([]string{SessionCookieName + "=abc; Expires=not-a-date"})
		assert.Nil(t, jar.SessionExpiry())
	})

	t.Run("nil for cookie restored from stored header", func(t *testing.T) {
		// serialization drops attributes, so a restored jar has no expiry
		jar := NewJar(SessionCookieName + "=abc")
		assert.Nil(t, jar.SessionExpiry())
	})
}

func sortedPairs(header string) []string {
	pairs := strings.Split(header, "; ")
	sort.Strings(pairs)
	return pairs
}

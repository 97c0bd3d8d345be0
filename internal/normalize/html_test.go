package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTML(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty", "", ""},
		{"whitespace only", "  \n\t \n", ""},
		{"plain paragraphs", "Line one\nLine two\n\nPara two", "<p>Line one<br/>Line two</p>\n<p>Para two</p>"},
		{"many blank lines", "a\n\n\n\nb", "<p>a</p>\n<p>b</p>"},
		{"crlf", "a\r\nb", "<p>a<br/>b</p>"},
		{"plain text escaping", "a < b & c", "<p>a &lt; b &amp; c</p>"},
		{"inline markup in plain text", "Hello <em>there</em>", "<p>Hello <em>there</em></p>"},
		{"unclosed tags", "<p>Hello <b>world", "<p>Hello <b>world</b></p>"},
		{"nested unclosed", "<div><p>a</div>", "<div><p>a</p></div>"},
		{"list items", "<ul><li>one<li>two</ul>", "<ul><li>one</li><li>two</li></ul>"},
		{"script removed", "<p>hi</p><script>alert(1)</script>", "<p>hi</p>"},
		{"nested script removed", "<div><p>a</p><style>p{}</style></div>", "<div><p>a</p></div>"},
		{"comment removed", "<p>a<!-- note --></p>", "<p>a</p>"},
		{"event handler removed", `<p onclick="x()">a</p>`, "<p>a</p>"},
		{"javascript href removed", `<p><a href="javascript:alert(1)">x</a></p>`, "<p><a>x</a></p>"},
		{"safe href kept", `<p><a href="https://example.org">x</a></p>`, `<p><a href="https://example.org">x</a></p>`},
		{"loose text before block", "Intro <p>Body</p>", "<p>Intro </p>\n<p>Body</p>"},
		{"blocks one per line", "<h2>Title</h2><p>Body</p>", "<h2>Title</h2>\n<p>Body</p>"},
		{"definition list kept", "<dl><dt>Nome</dt><dd>Valor</dd></dl>", "<dl><dt>Nome</dt><dd>Valor</dd></dl>"},
		{"stray end tags after dt", "<dt>\n\n</i></ul><html>", "<dt>\n\n</dt>"},
		{"empty paragraphs dropped", "<p></p><p> \n </p><p>a</p>", "<p>a</p>"},
		{"nested empty paragraph dropped", "<div><p>a</p><p>  </p></div>", "<div><p>a</p></div>"},
		{"paragraph emptied by scrub dropped", "<p><script>x()</script></p><h3>T</h3>", "<h3>T</h3>"},
		{"header and nav are blocks", "<header>Topo</header><nav>Menu</nav>", "<header>Topo</header>\n<nav>Menu</nav>"},
		{"comment between blocks", "<p>a</p><!-- x --><p>b</p>", "<p>a</p>\n<p>b</p>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, HTML(tt.input))
		})
	}
}

func FuzzHTML_Idempotent(f *testing.F) {
	for _, seed := range []string{
		"",
		"plain",
		"Line one\nLine two\n\nPara two",
		"<p>Hello <b>world",
		"<b><i>x</b></i>",
		"<table><tr><td>x</table>",
		"<ul><li>one<li>two</ul> trailing",
		"Intro <p>Body</p> outro",
		"<p>a</p>\n<b>x</b>\n<p>c</p>",
		"<pre>\n  code\n</pre>",
		"<blockquote>quote<p>nested</blockquote>",
		"<p>&amp; &lt; &#39;quoted&#39;</p>",
		"caf\xe9 au lait",
		"abc\x00def",
		"<div><div><div>deep",
		"<h1>Título</h1>\n\nCorpo com acentuação.",
		"<dt>\n\n</i></ul><html>",
		"<dl><dt>Nome</dt><dd>Valor</dd></dl>",
		"<form>x</form><main>y",
		"a\r\n\r\n<!-- c -->",
		"<p></p>\n<p> </p>",
		"x < p y",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, in string) {
		once := HTML(in)
		assert.Equal(t, once, HTML(once), "not idempotent for %q", in)
	})
}

func TestBlockMarker_CoversBlockElements(t *testing.T) {
	for a := range blockElements {
		assert.True(t, blockMarkerPattern.MatchString("<"+a.String()+">"), a.String())
		assert.True(t, blockMarkerPattern.MatchString("</"+strings.ToUpper(a.String())+">"), a.String())
	}
	assert.False(t, blockMarkerPattern.MatchString("<b>bold</b> <em>x</em>"))
}

func TestStrict_Unparseable(t *testing.T) {
	_, err := Strict("abc\x00def")
	assert.ErrorIs(t, err, ErrUnparseable)

	_, err = Strict("caf\xe9")
	assert.ErrorIs(t, err, ErrUnparseable)
}

func TestStrict_Valid(t *testing.T) {
	out, err := Strict("<p>fine</p>")
	require.NoError(t, err)
	assert.Equal(t, "<p>fine</p>", out)
}

func TestHTML_FallbackEscapes(t *testing.T) {
	assert.Equal(t, "<p>abcdef</p>", HTML("abc\x00def"))

	out := HTML("<b>bad\x00</b>")
	assert.Equal(t, "<p>&lt;b&gt;bad&lt;/b&gt;</p>", out)
	assert.True(t, strings.HasPrefix(HTML("caf\xe9"), "<p>caf"))
}

func TestHTML_NeverPanics(t *testing.T) {
	inputs := []string{"<", ">", "</p>", "<p", "<!--", "<![CDATA[x]]>", "<svg><foreignObject><p>x", strings.Repeat("<div>", 500)}
	for _, in := range inputs {
		assert.NotPanics(t, func() { _ = HTML(in) })
	}
}

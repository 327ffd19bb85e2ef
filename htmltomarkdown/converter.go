// Package htmltomarkdown renders the HTML formatted_body of Matrix messages
// as Markdown for terminal tables.
package htmltomarkdown

import (
	"regexp"
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/fwojciec/matrixctl"
)

// Ensure Converter implements matrixctl.Converter at compile time.
var _ matrixctl.Converter = (*Converter)(nil)

// replyFallback matches the quoted parent event clients prepend to replies.
var replyFallback = regexp.MustCompile(`(?is)<mx-reply>.*?</mx-reply>`)

// Converter wraps html-to-markdown to convert message HTML to Markdown.
type Converter struct {
	conv *converter.Converter
}

// NewConverter creates a new Converter.
func NewConverter() *Converter {
	conv := converter.NewConverter(
		converter.WithPlugins(
			base.NewBasePlugin(),
			commonmark.NewCommonmarkPlugin(),
			table.NewTablePlugin(),
		),
	)
	return &Converter{conv: conv}
}

// Convert transforms a formatted_body into Markdown. Reply fallbacks are
// dropped.
func (c *Converter) Convert(html string) (string, error) {
	html = replyFallback.ReplaceAllString(html, "")
	if strings.TrimSpace(html) == "" {
		return "", matrixctl.Errorf(matrixctl.EINVALID, "empty HTML input")
	}

	result, err := c.conv.ConvertString(html)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(result), nil
}

// Body returns the printable body of a message: the Markdown rendering of
// formatted_body when the message carries HTML, otherwise the plain body.
func Body(conv matrixctl.Converter, content matrixctl.MessageContent) string {
	if content.Format != "org.matrix.custom.html" || strings.TrimSpace(content.FormattedBody) == "" {
		return content.Body
	}
	md, err := conv.Convert(content.FormattedBody)
	if err != nil || md == "" {
		return content.Body
	}
	return md
}

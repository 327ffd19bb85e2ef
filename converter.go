package matrixctl

// Converter converts HTML to Markdown.
type Converter interface {
	// Convert transforms HTML content, such as the formatted_body of a
	// message event, into Markdown suitable for terminal output.
	Convert(html string) (string, error)
}

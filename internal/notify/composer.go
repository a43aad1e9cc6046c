package notify

import (
	"fmt"
	"html"
	"strings"

	"github.com/nao1215/ticketwatch/internal/model"
)

// Message is a composed notification.
type Message struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Compose builds the subject and the plain text and HTML bodies reporting
// matches for query found in source. Matches are listed in the given order.
// Every value inserted into the HTML body is escaped.
func Compose(query, source string, matches []model.Match) (Message, error) {
	if len(matches) == 0 {
		return Message{}, ErrNoMatches
	}

	header := fmt.Sprintf("The following events matching '%s' were found in %s:", query, source)

	var text strings.Builder
	text.WriteString(header)
	text.WriteString("\n\n")
	for _, m := range matches {
		fmt.Fprintf(&text, "Title: %s\nLink: %s\n\n", m.Title, m.Link)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<h3>%s</h3>", html.EscapeString(header))
	for _, m := range matches {
		link := html.EscapeString(m.Link)
		fmt.Fprintf(&body, "<p><strong>Title:</strong> %s<br>", html.EscapeString(m.Title))
		fmt.Fprintf(&body, "<strong>Link:</strong> <a href='%s'>%s</a></p>", link, link)
	}

	return Message{
		Subject: fmt.Sprintf("FOUND %d EVENT(S) MATCHING '%s'", len(matches), query),
		Text:    text.String(),
		HTML:    body.String(),
	}, nil
}

package corpus

import (
	"bytes"
	"strings"

	html2md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/mackee/go-readability"
	"github.com/morikuni/failure/v2"
	"golang.org/x/net/html"
)

func parseHTML(name string, data []byte) (Document, error) {
	root, err := html.Parse(bytes.NewReader(data))
	if err != nil {
		return Document{}, failure.Wrap(err,
			failure.WithCode(InvalidDocument),
			failure.Message("chapter HTML is malformed"),
			failure.Context{"name": name},
		)
	}

	text, err := htmlToMarkdown(string(data))
	if err != nil {
		return Document{}, failure.Wrap(err,
			failure.WithCode(InvalidDocument),
			failure.Message("chapter HTML could not be converted"),
			failure.Context{"name": name},
		)
	}

	title, description := htmlHead(root)
	doc := newDocument(name)
	doc.Text = strings.TrimSpace(text) + "\n"
	doc.Title = title
	if doc.Title == "" {
		doc.Title = firstHeading(doc.Text)
	}
	if doc.Title == "" {
		return Document{}, failure.New(InvalidDocument,
			failure.Message("chapter has no title"),
			failure.Context{"name": name},
		)
	}
	doc.Description = description
	return doc, nil
}

// htmlToMarkdown extracts the main article with readability and falls back
// to converting the whole page.
func htmlToMarkdown(body string) (string, error) {
	article, err := readability.Extract(body, readability.DefaultOptions())
	if err == nil && article.Root != nil {
		return readability.ToMarkdown(article.Root), nil
	}

	converter := html2md.NewConverter("", true, &html2md.Options{})
	return converter.ConvertString(body)
}

// htmlHead returns the <title> text and the description meta tag.
func htmlHead(doc *html.Node) (title, description string) {
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "title":
				if title == "" && n.FirstChild != nil {
					title = strings.TrimSpace(n.FirstChild.Data)
				}
			case "meta":
				var metaName, content string
				for _, attr := range n.Attr {
					switch attr.Key {
					case "name":
						metaName = attr.Val
					case "content":
						content = attr.Val
					}
				}
				if metaName == "description" && description == "" {
					description = content
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return title, description
}

package transcript

import (
	"strings"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
)

// markdownConverter turns description HTML into markdown. One converter is
// shared per Fetcher; conversions are stateless.
type markdownConverter struct {
	conv *converter.Converter
}

func newMarkdownConverter() *markdownConverter {
	return &markdownConverter{
		conv: converter.NewConverter(
			converter.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(),
			),
		),
	}
}

// convert renders html as markdown, resolving relative links against
// sourceURL. Empty output is reported as such rather than returned.
func (m *markdownConverter) convert(html, sourceURL string) (string, error) {
	result, err := m.conv.ConvertString(html, converter.WithDomain(sourceURL))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(result), nil
}
